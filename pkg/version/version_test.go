package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/rbset/pkg/version"
)

func TestString(t *testing.T) {
	version.InitBinaryVersion()

	out := version.String()
	assert.Contains(t, out, "rbset ")
	assert.Contains(t, out, "commit: ")
	assert.NotEmpty(t, version.Version)
}
