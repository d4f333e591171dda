package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	v, commit, date := Info()
	assert.Equal(t, v+" (commit: "+commit+", built: "+date+")", String())
}
