package tools

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func raw(slug, name, description string) RawRecord {
	return RawRecord{
		Slug:   slug,
		Source: "_data/projects/" + slug + ".yml",
		Fields: map[string]any{"name": name, "description": description},
	}
}

func rawWith(slug, name, description string, extra map[string]any) RawRecord {
	r := raw(slug, name, description)
	for k, v := range extra {
		r.Fields[k] = v
	}
	return r
}

// IndexTestSuite is the test suite for Build and the index accessors
type IndexTestSuite struct {
	suite.Suite
}

// TestBuild tests a plain build keeps insertion order and assigns ids
func (s *IndexTestSuite) TestBuild() {
	idx, err := Build([]RawRecord{
		raw("drush", "Drush", "CLI for automation"),
		raw("Lando", "Lando", "Local development"),
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), 2, idx.Len())

	records := idx.Records()
	require.Equal(s.T(), "drush", records[0].ID)
	require.Equal(s.T(), "Lando", records[1].ID, "slug case is preserved")
	require.Equal(s.T(), "_data/projects/drush.yml", records[0].Source)
}

// TestBuild_Empty tests an empty input builds an empty index
func (s *IndexTestSuite) TestBuild_Empty() {
	idx, err := Build(nil)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 0, idx.Len())
	require.NotNil(s.T(), idx.Categories())
	require.Empty(s.T(), idx.Categories())
}

// TestBuild_MissingDescription tests a missing required field aborts the build
func (s *IndexTestSuite) TestBuild_MissingDescription() {
	idx, err := Build([]RawRecord{
		raw("drush", "Drush", "CLI for automation"),
		{Slug: "broken", Source: "_data/projects/broken.yml", Fields: map[string]any{"name": "Broken"}},
	})
	require.Error(s.T(), err)
	require.Nil(s.T(), idx)

	var verr *ValidationError
	require.True(s.T(), errors.As(err, &verr))
	require.Equal(s.T(), "description", verr.Field)
	require.Equal(s.T(), "_data/projects/broken.yml", verr.Source)
	require.Contains(s.T(), err.Error(), "_data/projects/broken.yml")
}

// TestBuild_InvalidFields tests the structural validation rules
func (s *IndexTestSuite) TestBuild_InvalidFields() {
	tests := []struct {
		name   string
		record RawRecord
		field  string
	}{
		{"blank name", raw("a", "   ", "desc"), "name"},
		{"empty description", raw("a", "A", ""), "description"},
		{"non-string name", RawRecord{Slug: "a", Fields: map[string]any{"name": 42, "description": "d"}}, "name"},
		{"nil name", RawRecord{Slug: "a", Fields: map[string]any{"name": nil, "description": "d"}}, "name"},
		{"mapping as categories", rawWith("a", "A", "d", map[string]any{"category": map[string]any{"x": 1}}), "category"},
		{"nested list as tags", rawWith("a", "A", "d", map[string]any{"tags": []any{[]any{"x"}}}), "tags"},
		{"non-string homepage", rawWith("a", "A", "d", map[string]any{"homepage": 12}), "homepage"},
		{"empty slug", RawRecord{Slug: " ", Fields: map[string]any{"name": "A", "description": "d"}}, ""},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := Build([]RawRecord{tt.record})
			var verr *ValidationError
			require.True(s.T(), errors.As(err, &verr), "expected ValidationError, got %v", err)
			require.Equal(s.T(), tt.field, verr.Field)
		})
	}
}

// TestBuild_DuplicateID tests two records with the same slug fail the build
func (s *IndexTestSuite) TestBuild_DuplicateID() {
	first := raw("drush", "Drush", "CLI")
	second := raw("drush", "Drush 2", "Another CLI")
	second.Source = "_data/projects/drush.yaml"

	idx, err := Build([]RawRecord{first, second})
	require.Nil(s.T(), idx)

	var derr *DuplicateIDError
	require.True(s.T(), errors.As(err, &derr))
	require.Equal(s.T(), "drush", derr.ID)
	require.Equal(s.T(), "_data/projects/drush.yml", derr.First)
	require.Equal(s.T(), "_data/projects/drush.yaml", derr.Second)
}

// TestBuild_IDsAreUnique tests every built index has unique ids
func (s *IndexTestSuite) TestBuild_IDsAreUnique() {
	idx, err := Build([]RawRecord{
		raw("a", "A", "d"), raw("b", "B", "d"), raw("A", "A upper", "d"),
	})
	require.NoError(s.T(), err)

	seen := make(map[string]bool)
	for _, rec := range idx.Records() {
		require.False(s.T(), seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}

// TestBuild_NormalizesLists tests trimming, empty entry removal and aliases
func (s *IndexTestSuite) TestBuild_NormalizesLists() {
	idx, err := Build([]RawRecord{
		rawWith("drush", " Drush ", "CLI for automation", map[string]any{
			"category":        []any{" cli ", "", "Automation", nil},
			"tags":            "shell",
			"drupal_versions": []any{8, 9.5, "10", "  "},
			"docs":            "https://www.drush.org/latest/",
			"source":          "https://github.com/drush-ops/drush",
			"homepage":        "https://www.drush.org",
		}),
	})
	require.NoError(s.T(), err)

	rec := idx.Records()[0]
	require.Equal(s.T(), "Drush", rec.Name)
	require.Equal(s.T(), []string{"cli", "Automation"}, rec.Categories)
	require.Equal(s.T(), []string{"shell"}, rec.Tags)
	require.Equal(s.T(), []string{"8", "9.5", "10"}, rec.CompatibleVersions)
	require.Equal(s.T(), "https://www.drush.org/latest/", rec.DocsURL)
	require.Equal(s.T(), "https://github.com/drush-ops/drush", rec.SourceURL)
	require.Empty(s.T(), rec.Extra, "aliases are consumed, not passed through")
}

// TestBuild_MissingOptionalFieldsDefaultEmpty tests optional lists default to empty
func (s *IndexTestSuite) TestBuild_MissingOptionalFieldsDefaultEmpty() {
	idx, err := Build([]RawRecord{raw("drush", "Drush", "CLI")})
	require.NoError(s.T(), err)

	rec := idx.Records()[0]
	require.NotNil(s.T(), rec.Categories)
	require.NotNil(s.T(), rec.Tags)
	require.NotNil(s.T(), rec.CompatibleVersions)
	require.Empty(s.T(), rec.Categories)
}

// TestBuild_PassthroughFields tests opaque fields survive and the raw id is replaced
func (s *IndexTestSuite) TestBuild_PassthroughFields() {
	idx, err := Build([]RawRecord{
		rawWith("drush", "Drush", "CLI", map[string]any{
			"id":          "something-else",
			"recommended": true,
			"created":     2008,
		}),
	})
	require.NoError(s.T(), err)

	rec := idx.Records()[0]
	require.Equal(s.T(), "drush", rec.ID)
	require.Equal(s.T(), map[string]any{"recommended": true, "created": 2008}, rec.Extra)

	fields := rec.Fields()
	require.Equal(s.T(), "drush", fields["id"])
	require.Equal(s.T(), true, fields["recommended"])
}

// TestBuild_DoesNotMutateInput tests the raw field maps are left untouched
func (s *IndexTestSuite) TestBuild_DoesNotMutateInput() {
	r := rawWith("drush", "Drush", "CLI", map[string]any{"category": []any{"cli"}})
	_, err := Build([]RawRecord{r})
	require.NoError(s.T(), err)
	require.Contains(s.T(), r.Fields, "category")
	require.Contains(s.T(), r.Fields, "name")
}

// TestCategories tests the category set is the sorted, deduplicated union
func (s *IndexTestSuite) TestCategories() {
	idx, err := Build([]RawRecord{
		rawWith("a", "A", "d", map[string]any{"category": []any{"testing", "cli"}}),
		rawWith("b", "B", "d", map[string]any{"category": []any{"cli", "Deployment"}}),
		raw("c", "C", "d"),
		rawWith("d", "D", "d", map[string]any{"categories": []any{}}),
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), []string{"Deployment", "cli", "testing"}, idx.Categories())

	// Callers get a copy.
	cats := idx.Categories()
	cats[0] = "mutated"
	require.Equal(s.T(), "Deployment", idx.Categories()[0])
}

// TestIndexTestSuite runs the test suite
func TestIndexTestSuite(t *testing.T) {
	suite.Run(t, new(IndexTestSuite))
}
