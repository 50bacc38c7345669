// Package paths resolves the directories skillet reads from and writes to.
//
// Lookup order for each location (first match wins):
//  1. explicit environment override (SKILLET_PROJECT_ROOT, SKILLET_SKILLS_DIR,
//     SKILLET_WORKFLOWS_DIR, SKILLET_HOME)
//  2. the project root discovered by walking up from the working directory
//  3. the user config directory (~/.config/skillet or $XDG_CONFIG_HOME/skillet)
package paths

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// AppName is used for the user config directory name.
	AppName = "skillet"

	// ProjectMarkerDir marks a project root explicitly.
	ProjectMarkerDir = ".skillet"

	skillsDirName    = "skills"
	workflowsDirName = "workflows"
)

// ProjectRoot walks up from the working directory until it finds a directory
// containing .skillet, a skills/ and workflows/ pair, or .git. The working
// directory is returned if nothing matches.
func ProjectRoot() (string, error) {
	if root := os.Getenv("SKILLET_PROJECT_ROOT"); root != "" {
		return filepath.Abs(root)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to get working directory")
	}

	return findProjectRoot(wd), nil
}

func findProjectRoot(start string) string {
	dir := start
	for {
		if isDir(filepath.Join(dir, ProjectMarkerDir)) {
			return dir
		}
		if isDir(filepath.Join(dir, skillsDirName)) && isDir(filepath.Join(dir, workflowsDirName)) {
			return dir
		}
		if isDir(filepath.Join(dir, ".git")) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// SkillsDir returns the directory scanned for skills.
func SkillsDir() (string, error) {
	if dir := os.Getenv("SKILLET_SKILLS_DIR"); dir != "" {
		return filepath.Abs(dir)
	}
	root, err := ProjectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, skillsDirName), nil
}

// WorkflowsDir returns the project workflows directory.
func WorkflowsDir() (string, error) {
	if dir := os.Getenv("SKILLET_WORKFLOWS_DIR"); dir != "" {
		return filepath.Abs(dir)
	}
	root, err := ProjectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, workflowsDirName), nil
}

// UserConfigDir returns the per-user configuration directory.
func UserConfigDir() (string, error) {
	if dir := os.Getenv("SKILLET_HOME"); dir != "" {
		return filepath.Abs(dir)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user home directory")
	}
	return filepath.Join(home, ".config", AppName), nil
}

// UserWorkflowsDir holds workflow templates installed by `skillet init`.
func UserWorkflowsDir() (string, error) {
	return inUserConfig(workflowsDirName)
}

// MasterBriefingPath is the global brand briefing file.
func MasterBriefingPath() (string, error) {
	return inUserConfig("master-briefing.yaml")
}

// ModelRegistryPath is the optional model alias registry.
func ModelRegistryPath() (string, error) {
	return inUserConfig("models.yaml")
}

// ConfigFilePath is the viper-managed user config file.
func ConfigFilePath() (string, error) {
	return inUserConfig("config.yaml")
}

// HistoryDBPath is the sqlite database holding run history.
func HistoryDBPath() (string, error) {
	return inUserConfig("history.db")
}

// UserEnvPath is the user-level .env credentials file.
func UserEnvPath() (string, error) {
	return inUserConfig(".env")
}

func inUserConfig(name string) (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
