package highlights

import (
	"testing"

	"github.com/doitian/readwise-scripts/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquash_NoConcatTagsIsIdentity(t *testing.T) {
	records := []entities.Highlight{
		{Text: "Chapter 1", Note: ".h1"},
		{Text: "first"},
		{Text: "second", Note: "plain note"},
		{Text: "third", Note: ".favorite"},
	}

	once := Squash(records)
	assert.Equal(t, records, once)
	assert.Equal(t, once, Squash(once))
}

func TestSquash_MergesSequence(t *testing.T) {
	records := []entities.Highlight{
		{Text: "before"},
		{Text: "part one", Note: ".c1 .quote\nfirst note", Title: "Book", Location: 10},
		{Text: "part two", Note: ".c2", Location: 11},
		{Text: "part three", Note: ".c3 .quote .idea\nthird note", Location: 12},
		{Text: "after"},
	}

	result := Squash(records)

	require.Len(t, result, 3)
	assert.Equal(t, "before", result[0].Text)
	assert.Equal(t, "part one part two part three", result[1].Text)
	assert.Equal(t, ".quote .idea\nfirst note\nthird note", result[1].Note)
	assert.Equal(t, "Book", result[1].Title)
	assert.Equal(t, 10, result[1].Location)
	assert.Equal(t, "after", result[2].Text)
}

func TestSquash_DropsNoteWhenOnlyConcatTags(t *testing.T) {
	result := Squash([]entities.Highlight{
		{Text: "a", Note: ".c1"},
		{Text: "b", Note: ".c2"},
	})

	require.Len(t, result, 1)
	assert.Equal(t, "a b", result[0].Text)
	assert.Empty(t, result[0].Note)
}

func TestSquash_KeepsTextOnTagLine(t *testing.T) {
	result := Squash([]entities.Highlight{
		{Text: "first", Note: ".c1 opening thought"},
		{Text: "second", Note: ".c2 .idea closing thought\nlast line"},
	})

	require.Len(t, result, 1)
	assert.Equal(t, "first second", result[0].Text)
	assert.Equal(t, ".idea\nopening thought\nclosing thought\nlast line", result[0].Note)
}

func TestSquash_BrokenSequence(t *testing.T) {
	t.Run("lower index closes the group and passes through", func(t *testing.T) {
		result := Squash([]entities.Highlight{
			{Text: "a", Note: ".c1"},
			{Text: "b", Note: ".c3"},
			{Text: "c", Note: ".c2"},
		})

		require.Len(t, result, 2)
		assert.Equal(t, "a b", result[0].Text)
		assert.Equal(t, "c", result[1].Text)
		assert.Equal(t, ".c2", result[1].Note)
	})

	t.Run("new c1 starts a new group", func(t *testing.T) {
		result := Squash([]entities.Highlight{
			{Text: "a", Note: ".c1"},
			{Text: "b", Note: ".c2"},
			{Text: "x", Note: ".c1"},
			{Text: "y", Note: ".c2"},
		})

		require.Len(t, result, 2)
		assert.Equal(t, "a b", result[0].Text)
		assert.Equal(t, "x y", result[1].Text)
	})

	t.Run("orphan fragment passes through", func(t *testing.T) {
		result := Squash([]entities.Highlight{
			{Text: "a", Note: ".c2 kept"},
		})

		require.Len(t, result, 1)
		assert.Equal(t, ".c2 kept", result[0].Note)
	})

	t.Run("untagged record closes the group", func(t *testing.T) {
		result := Squash([]entities.Highlight{
			{Text: "a", Note: ".c1"},
			{Text: "plain"},
			{Text: "b", Note: ".c2"},
		})

		require.Len(t, result, 3)
		assert.Equal(t, "a", result[0].Text)
		assert.Empty(t, result[0].Note)
		assert.Equal(t, "plain", result[1].Text)
		assert.Equal(t, ".c2", result[2].Note)
	})
}

func TestSquash_KeepsHeadingOfFirstFragment(t *testing.T) {
	result := Squash([]entities.Highlight{
		{Text: "Long", Note: ".c1 .h2"},
		{Text: "Title", Note: ".c2"},
	})

	require.Len(t, result, 1)
	assert.Equal(t, "Long Title", result[0].Text)
	assert.Equal(t, ".h2", result[0].Note)
	assert.True(t, result[0].IsHeading())
}

func TestTagNames(t *testing.T) {
	assert.Nil(t, TagNames(entities.Highlight{Note: "plain"}))
	assert.Nil(t, TagNames(entities.Highlight{}))
	assert.Equal(t, []string{"h1"}, TagNames(entities.Highlight{Note: ".h1"}))
	assert.Equal(t, []string{"blue", "idea"}, TagNames(entities.Highlight{Note: ".blue .idea and\n.second line"}))
}

func TestAddTag(t *testing.T) {
	assert.Equal(t, ".blue", AddTag("", ".blue"))
	assert.Equal(t, ".blue .idea", AddTag(".idea", ".blue"))
	assert.Equal(t, ".blue\n\nsome note", AddTag("some note", ".blue"))
}

func TestCountHeadings(t *testing.T) {
	assert.Equal(t, 2, CountHeadings([]entities.Highlight{
		{Text: "a", Note: ".h1"},
		{Text: "b"},
		{Text: "c", Note: ".h3"},
	}))
}
