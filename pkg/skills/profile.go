package skills

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aymanbagabas/go-udiff"
	"github.com/pkg/errors"
)

// ProfileDiff returns a unified diff from a skill's PROFILE.md.template to
// its PROFILE.md. It is empty when the skill is not customized or the
// profile matches the template.
func (c *Catalog) ProfileDiff(ctx context.Context, name string) (string, error) {
	d, err := c.Get(ctx, name)
	if err != nil {
		return "", err
	}
	if d.ProfileState != ProfileCustomized {
		return "", nil
	}

	profile, err := os.ReadFile(filepath.Join(d.Path, profileFileName))
	if err != nil {
		return "", errors.Wrapf(err, "failed to read profile of '%s'", name)
	}
	template, err := os.ReadFile(filepath.Join(d.Path, profileTemplateName))
	if err != nil && !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "failed to read profile template of '%s'", name)
	}
	return udiff.Unified(profileTemplateName, profileFileName, string(template), string(profile)), nil
}
