package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupParameter(t *testing.T) {
	p, err := LookupParameter("1")
	require.NoError(t, err)
	assert.Equal(t, "Lufttemperatur", p.Title)
	assert.Equal(t, "momentanvärde, 1 gång/tim", p.Summary)
	assert.Equal(t, "celsius", p.Unit)
}

func TestLookupParameter_Unknown(t *testing.T) {
	_, err := LookupParameter("999")
	require.ErrorIs(t, err, ErrUnknownParameter)
	assert.Contains(t, err.Error(), "999")
}

func TestParameters_OrderedByID(t *testing.T) {
	all := Parameters()
	require.Len(t, all, 40)
	assert.Equal(t, "1", all[0].ID)
	assert.Equal(t, "2", all[1].ID)
	assert.Equal(t, "40", all[len(all)-1].ID)
}
