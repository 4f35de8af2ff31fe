package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("strips BOM and normalizes headers", func(t *testing.T) {
		p, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFChallan_No , Vendor_ID\nCH-1,V-1\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"challan_no", "vendor_id"}, p.Headers())

		rows, err := p.ReadAllRows()
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "CH-1", rows[0].Get("challan_no"))
		assert.Equal(t, 2, rows[0].LineNumber)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("   \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
		assert.ErrorIs(t, err, ErrFile)
		assert.NotErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("invalid encoding", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("name\n\xff\xfe\xfd\n"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("semicolon delimiter", func(t *testing.T) {
		p, err := NewCSVParser(strings.NewReader("a;b\n1;2\n"), WithDelimiter(';'))
		require.NoError(t, err)
		row, err := p.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "2", row.Get("b"))
	})
}

func TestCSVParser_ReadAllRows(t *testing.T) {
	t.Run("skips blank rows and pads short rows", func(t *testing.T) {
		p, err := NewCSVParser(strings.NewReader("a,b,c\n1,2,3\n,,\n4\n"))
		require.NoError(t, err)

		rows, err := p.ReadAllRows()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 4, rows[1].LineNumber)
		assert.Equal(t, "", rows[1].Get("c"))
	})

	t.Run("row limit", func(t *testing.T) {
		p, err := NewCSVParser(strings.NewReader("a\n1\n2\n3\n"), WithMaxRows(2))
		require.NoError(t, err)

		_, err = p.ReadAllRows()
		assert.ErrorIs(t, err, ErrTooManyRows)
	})
}

func TestCSVParser_MissingHeaders(t *testing.T) {
	p, err := NewCSVParser(strings.NewReader("vendor_id,quantity\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"product_id"}, p.MissingHeaders([]string{"vendor_id", "product_id", "quantity"}))
}
