package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Great work", plainText("  <b>Great</b> work "))
	assert.Equal(t, "Math & Science", plainText("Math & Science"))
	assert.Equal(t, "", plainText("<script>alert(1)</script>"))
}
