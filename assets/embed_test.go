package assets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchema_IsIdempotentDDL(t *testing.T) {
	s := Schema()
	assert.Contains(t, s, "CREATE TABLE IF NOT EXISTS meta")
	assert.Contains(t, s, "CREATE TABLE IF NOT EXISTS squares")
	assert.NotContains(t, strings.ToUpper(s), "DROP ")
}
