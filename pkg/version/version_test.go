package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	old := Version
	Version = "1.2.3"
	defer func() { Version = old }()

	info := Info("covmap")
	assert.Contains(t, info, "covmap version 1.2.3\n")
	assert.Contains(t, info, "Go version: "+GoVersion)
}
