package commands

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		setupFunc func() (string, func())
		wantErr   bool
		errMsg    string
	}{
		{
			name: "successful init in git repo",
			args: []string{"init", "--project", "init-test"},
			setupFunc: func() (string, func()) {
				tmpDir, err := os.MkdirTemp("", "init-cmd-test-*")
				if err != nil {
					t.Fatal(err)
				}
				cmd := exec.Command("git", "init")
				cmd.Dir = tmpDir
				if err := cmd.Run(); err != nil {
					os.RemoveAll(tmpDir)
					t.Fatal(err)
				}
				return tmpDir, func() { os.RemoveAll(tmpDir) }
			},
			wantErr: false,
		},
		{
			name: "fails when not in git repo",
			args: []string{"init", "--project", "init-test"},
			setupFunc: func() (string, func()) {
				tmpDir, err := os.MkdirTemp("", "init-nogit-test-*")
				if err != nil {
					t.Fatal(err)
				}
				return tmpDir, func() { os.RemoveAll(tmpDir) }
			},
			wantErr: true,
			errMsg:  "not a Git repository",
		},
		{
			name: "fails when not at git root",
			args: []string{"init", "--project", "init-test"},
			setupFunc: func() (string, func()) {
				tmpDir, err := os.MkdirTemp("", "init-subdir-test-*")
				if err != nil {
					t.Fatal(err)
				}
				cmd := exec.Command("git", "init")
				cmd.Dir = tmpDir
				if err := cmd.Run(); err != nil {
					os.RemoveAll(tmpDir)
					t.Fatal(err)
				}
				subDir := filepath.Join(tmpDir, "subdir")
				if err := os.MkdirAll(subDir, 0755); err != nil {
					os.RemoveAll(tmpDir)
					t.Fatal(err)
				}
				return subDir, func() { os.RemoveAll(tmpDir) }
			},
			wantErr: true,
			errMsg:  "must run from Git repository root",
		},
		{
			name: "fails when already initialized",
			args: []string{"init", "--project", "init-test"},
			setupFunc: func() (string, func()) {
				tmpDir, err := os.MkdirTemp("", "init-existing-test-*")
				if err != nil {
					t.Fatal(err)
				}
				cmd := exec.Command("git", "init")
				cmd.Dir = tmpDir
				if err := cmd.Run(); err != nil {
					os.RemoveAll(tmpDir)
					t.Fatal(err)
				}
				esYml := filepath.Join(tmpDir, "es.yml")
				if err := os.WriteFile(esYml, []byte("version: '1.0'"), 0644); err != nil {
					os.RemoveAll(tmpDir)
					t.Fatal(err)
				}
				return tmpDir, func() { os.RemoveAll(tmpDir) }
			},
			wantErr: true,
			errMsg:  "project already initialized",
		},
		{
			name: "force flag allows reinitialization",
			args: []string{"init", "--project", "init-test", "--force"},
			setupFunc: func() (string, func()) {
				tmpDir, err := os.MkdirTemp("", "init-force-test-*")
				if err != nil {
					t.Fatal(err)
				}
				cmd := exec.Command("git", "init")
				cmd.Dir = tmpDir
				if err := cmd.Run(); err != nil {
					os.RemoveAll(tmpDir)
					t.Fatal(err)
				}
				esYml := filepath.Join(tmpDir, "es.yml")
				if err := os.WriteFile(esYml, []byte("old content"), 0644); err != nil {
					os.RemoveAll(tmpDir)
					t.Fatal(err)
				}
				return tmpDir, func() { os.RemoveAll(tmpDir) }
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, cleanup := tt.setupFunc()
			defer cleanup()

			originalDir, err := os.Getwd()
			if err != nil {
				t.Fatal(err)
			}
			defer os.Chdir(originalDir)

			if err := os.Chdir(dir); err != nil {
				t.Fatal(err)
			}

			rootCmd.SetArgs(tt.args)
			err = rootCmd.Execute()

			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr && err != nil {
				if tt.errMsg != "" && !contains(err.Error(), tt.errMsg) {
					t.Errorf("Execute() error = %v, should contain %v", err.Error(), tt.errMsg)
				}
			}

			if !tt.wantErr {
				if _, err := os.Stat(filepath.Join(dir, "es.yml")); err != nil {
					t.Errorf("Expected es.yml to exist, but got error: %v", err)
				}
			}
		})
	}
}

func TestSanitizeProjectName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my-repo", "my-repo"},
		{"My_Repo", "my-repo"},
		{"repo.name", "repo-name"},
		{"-weird-", "weird"},
		{"Has Spaces", "has-spaces"},
	}

	for _, tt := range tests {
		if got := sanitizeProjectName(tt.in); got != tt.want {
			t.Errorf("sanitizeProjectName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
