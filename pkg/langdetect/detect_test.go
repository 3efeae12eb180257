package langdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	d := NewDetector()

	assert.Equal(t, "en", d.Detect("What is the weather like today in London?"))
	assert.Equal(t, "sv", d.Detect("Hur mår du idag? Jag hoppas att allt är bra med dig."))
	assert.Equal(t, "", d.Detect("   "))
}
