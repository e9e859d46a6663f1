package services

import (
	"fmt"
	"strings"

	"github.com/meator/android-tools-static/internal/domain/entities"
)

var runnerFamilies = []string{"windows", "macos", "ubuntu"}

// ParseRunner splits an official GitHub runner name such as
// "ubuntu-24.04" or "macos-14-xlarge" into its family and version.
func ParseRunner(name string) (family, version string, err error) {
	for _, f := range runnerFamilies {
		if rest, ok := strings.CutPrefix(name, f+"-"); ok && rest != "" {
			return f, rest, nil
		}
	}
	return "", "", fmt.Errorf("%w: GitHub runner %q has an unrecognized prefix, only official runners (%s) are supported",
		entities.ErrEnvironment, name, strings.Join(runnerFamilies, ", "))
}
