package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperbaseapp/paperbase-server/internal/domain"
	apperrors "github.com/paperbaseapp/paperbase-server/internal/errors"
)

func TestSameNameDifferentKinds(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := s.AddPaper(ctx, testPaper("paper-1", "One"),
		Names{Tags: []string{"reading"}, Folders: []string{"reading"}})
	require.NoError(t, err)

	tag, err := s.GetCategorizerByName(ctx, domain.Key{Kind: domain.KindTag, Name: "reading"})
	require.NoError(t, err)
	folder, err := s.GetCategorizerByName(ctx, domain.Key{Kind: domain.KindFolder, Name: "reading"})
	require.NoError(t, err)

	assert.NotEqual(t, tag.ID, folder.ID, "kinds do not share records")
	assert.Equal(t, domain.KindTag, tag.Kind)
	assert.Equal(t, domain.KindFolder, folder.Kind)
}

func TestListCategorizersOrdering(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := s.AddPaper(ctx, testPaper("paper-1", "One"), Names{Tags: []string{"popular", "rare"}})
	require.NoError(t, err)
	_, err = s.AddPaper(ctx, testPaper("paper-2", "Two"), Names{Tags: []string{"popular"}})
	require.NoError(t, err)

	tags, err := s.ListCategorizers(ctx, domain.KindTag)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "popular", tags[0].Name)
	assert.Equal(t, 2, tags[0].Count)
	assert.Equal(t, "rare", tags[1].Name)

	_, err = s.ListCategorizers(ctx, domain.Kind("bogus"))
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestNamesForIDs(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := s.AddPaper(ctx, testPaper("paper-1", "One"), Names{Tags: []string{"a", "b"}})
	require.NoError(t, err)

	p, err := s.GetPaper(ctx, "paper-1")
	require.NoError(t, err)

	names, err := s.NamesForIDs(ctx, domain.KindTag, p.TagIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	// Unknown ids are skipped, not errors.
	names, err = s.NamesForIDs(ctx, domain.KindTag, append(p.TagIDs, "tag-missing"))
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestFeedLifecycle(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	feed, err := s.CreateFeed(ctx, "arxiv cs.CL", "https://arxiv.org/rss/cs.CL")
	require.NoError(t, err)
	assert.Equal(t, domain.KindFeed, feed.Kind)
	assert.Equal(t, 0, feed.Count)

	// Names are unique per kind.
	_, err = s.CreateFeed(ctx, "arxiv cs.CL", "https://elsewhere")
	assert.True(t, apperrors.Is(err, apperrors.ErrDuplicate))

	require.NoError(t, s.UpdateFeedURL(ctx, feed.ID, "https://arxiv.org/rss/cs.LG"))
	got, err := s.GetCategorizer(ctx, domain.KindFeed, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://arxiv.org/rss/cs.LG", got.URL)

	// A paper attaching by name reuses the subscription record.
	_, err = s.AddPaper(ctx, testPaper("paper-1", "One"), Names{Feeds: []string{"arxiv cs.CL"}})
	require.NoError(t, err)
	got, err = s.GetCategorizer(ctx, domain.KindFeed, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, "https://arxiv.org/rss/cs.LG", got.URL, "attach does not clobber the subscription")

	// Referenced feeds cannot be deleted.
	err = s.DeleteFeed(ctx, feed.ID)
	require.Error(t, err)
	var de *apperrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, apperrors.CodeConflict, de.Code)

	// Unlike tags, a feed survives its count returning to zero.
	_, err = s.RemovePaper(ctx, "paper-1")
	require.NoError(t, err)
	got, err = s.GetCategorizer(ctx, domain.KindFeed, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Count)

	require.NoError(t, s.DeleteFeed(ctx, feed.ID))
	err = s.DeleteFeed(ctx, feed.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestLegacyMarkers(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	has, err := s.HasLegacyMarker(ctx, "42")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.SetLegacyMarker(ctx, "42", "paper-abc"))

	has, err = s.HasLegacyMarker(ctx, "42")
	require.NoError(t, err)
	assert.True(t, has)

	paperID, err := s.LegacyPaperID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "paper-abc", paperID)

	// Skipped rows are marked with an empty paper id.
	require.NoError(t, s.SetLegacyMarker(ctx, "43", ""))
	has, err = s.HasLegacyMarker(ctx, "43")
	require.NoError(t, err)
	assert.True(t, has)
}
