package parser

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deck-auditor/backend/internal/testutil"
)

func TestPPTXReader_ReadPresentation(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePPTX(t, dir, "deck.pptx",
		testutil.FixtureSlide{
			Shapes: []string{"Q3 Review", "Revenue ₹1.5 Cr\nMargin 12%"},
			Group:  []string{"R&D spend $3M"},
			Table: [][]string{
				{"Region", "Sales"},
				{"North", "₹2 Cr"},
			},
		},
		testutil.FixtureSlide{},
	)

	pres, err := NewPPTXReader().ReadPresentation(path, "deck.pptx")
	require.NoError(t, err)
	assert.Equal(t, "deck.pptx", pres.Name)
	require.Len(t, pres.Slides, 2)

	first := pres.Slides[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "Q3 Review", first.Title)
	assert.Equal(t, []string{"Q3 Review", "Revenue ₹1.5 Cr\nMargin 12%", "R&D spend $3M"}, first.Shapes)
	require.Len(t, first.Tables, 1)
	assert.Equal(t, [][]string{{"Region", "Sales"}, {"North", "₹2 Cr"}}, first.Tables[0].Rows)

	second := pres.Slides[1]
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, "Slide 2", second.Title)
	assert.Empty(t, second.Shapes)
}

func TestPPTXReader_DeclaredOrder(t *testing.T) {
	dir := t.TempDir()
	slides := []testutil.FixtureSlide{
		{Shapes: []string{"first part"}},
		{Shapes: []string{"second part"}},
	}
	path := filepath.Join(dir, "deck.pptx")
	require.NoError(t, os.WriteFile(path, testutil.PPTXBytes(t, slides, []int{2, 1}), 0644))

	pres, err := NewPPTXReader().ReadPresentation(path, "deck.pptx")
	require.NoError(t, err)
	require.Len(t, pres.Slides, 2)
	assert.Equal(t, "second part", pres.Slides[0].Title)
	assert.Equal(t, "first part", pres.Slides[1].Title)
}

func TestPPTXReader_NumericFallbackOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bare.pptx")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, text := range map[string]string{
		"ppt/slides/slide10.xml": "ten",
		"ppt/slides/slide2.xml":  "two",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(testutil.SlideXML(testutil.FixtureSlide{Shapes: []string{text}})))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	pres, err := NewPPTXReader().ReadPresentation(path, "bare.pptx")
	require.NoError(t, err)
	require.Len(t, pres.Slides, 2)
	assert.Equal(t, "two", pres.Slides[0].Title)
	assert.Equal(t, "ten", pres.Slides[1].Title)
}

func TestPPTXReader_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("not a zip", func(t *testing.T) {
		path := filepath.Join(dir, "broken.pptx")
		require.NoError(t, os.WriteFile(path, []byte("not a deck"), 0644))
		_, err := NewPPTXReader().ReadPresentation(path, "broken.pptx")
		assert.Error(t, err)
	})

	t.Run("no slides", func(t *testing.T) {
		path := filepath.Join(dir, "empty.pptx")
		require.NoError(t, os.WriteFile(path, testutil.PPTXBytes(t, nil, nil), 0644))
		_, err := NewPPTXReader().ReadPresentation(path, "empty.pptx")
		assert.Error(t, err)
	})
}

func TestPPTXToTokens(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePPTX(t, dir, "deck.pptx", testutil.FixtureSlide{
		Shapes: []string{"Revenue ₹1.5 Cr"},
		Table:  [][]string{{"Stores", "3,400"}},
	})

	pres, err := GetGlobalRegistry().ReadPresentation(path, "deck.pptx")
	require.NoError(t, err)

	slides, err := PresentationTokens(pres)
	require.NoError(t, err)
	require.Len(t, slides, 1)
	require.Len(t, slides[0].Tokens, 2)
	assert.Equal(t, 15000000.0, slides[0].Tokens[0].Value)
	assert.Equal(t, 3400.0, slides[0].Tokens[1].Value)
	assert.NotNil(t, slides[0].Tokens[1].TableCell)
}
