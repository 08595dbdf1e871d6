package tools

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// QueryTestSuite is the test suite for List, Search and Get
type QueryTestSuite struct {
	suite.Suite
	index *Index
}

// SetupTest runs before each test
func (s *QueryTestSuite) SetupTest() {
	idx, err := Build([]RawRecord{
		rawWith("drush", "Drush", "CLI for automation", map[string]any{
			"category": []any{"cli"},
			"tags":     []any{"automation"},
			"homepage": "https://www.drush.org",
		}),
		rawWith("lando", "Lando", "Local development environment", map[string]any{
			"category": []any{"Local-Dev", "docker"},
			"tags":     []any{"docker", "devops"},
			"source":   "https://github.com/lando/lando",
		}),
		rawWith("ddev", "DDEV", "Docker-based local development", map[string]any{
			"category": []any{"local-dev", "Docker"},
			"tags":     []any{"docker"},
		}),
		rawWith("phpstan-drupal", "PHPStan Drupal", "Static analysis for Drupal", map[string]any{
			"category": []any{"testing", "code-quality"},
			"docs":     "https://phpstan.org",
		}),
		rawWith("backstop", "BackstopJS", "Visual regression testing", map[string]any{
			"category": []any{"testing"},
			"tags":     []any{"visual", "regression"},
		}),
	})
	require.NoError(s.T(), err)
	s.index = idx
}

func ids(summaries []Summary) []string {
	out := make([]string, len(summaries))
	for i, sum := range summaries {
		out[i] = sum.ID
	}
	return out
}

// TestList tests listing without a filter returns insertion order
func (s *QueryTestSuite) TestList() {
	result := s.index.List("", 0)
	require.Equal(s.T(), 5, result.Total)
	require.Equal(s.T(), []string{"drush", "lando", "ddev", "phpstan-drupal", "backstop"}, ids(result.Tools))
}

// TestList_LimitDoesNotAffectTotal tests limit truncates but total counts all matches
func (s *QueryTestSuite) TestList_LimitDoesNotAffectTotal() {
	result := s.index.List("", 1)
	require.Len(s.T(), result.Tools, 1)
	require.Equal(s.T(), 5, result.Total)
}

// TestList_CategoryFilter tests case-insensitive category membership
func (s *QueryTestSuite) TestList_CategoryFilter() {
	for _, filter := range []string{"local-dev", "LOCAL-DEV", "Local-Dev"} {
		result := s.index.List(filter, 50)
		require.Equal(s.T(), []string{"lando", "ddev"}, ids(result.Tools), "filter %q", filter)
		require.Equal(s.T(), 2, result.Total)
		for _, tool := range result.Tools {
			found := false
			for _, c := range tool.Categories {
				if strings.EqualFold(c, filter) {
					found = true
				}
			}
			require.True(s.T(), found)
		}
	}
}

// TestList_CategoryFilterIsMembershipNotSubstring tests partial category names do not match
func (s *QueryTestSuite) TestList_CategoryFilterIsMembershipNotSubstring() {
	result := s.index.List("test", 50)
	require.Equal(s.T(), 0, result.Total)
	require.NotNil(s.T(), result.Tools)
	require.Empty(s.T(), result.Tools)
}

// TestList_FilterWithLimit tests total counts filtered matches before the limit
func (s *QueryTestSuite) TestList_FilterWithLimit() {
	result := s.index.List("testing", 1)
	require.Equal(s.T(), []string{"phpstan-drupal"}, ids(result.Tools))
	require.Equal(s.T(), 2, result.Total)
}

// TestList_DefaultLimit tests the default limit of 50
func (s *QueryTestSuite) TestList_DefaultLimit() {
	raws := make([]RawRecord, 0, 60)
	for i := 0; i < 60; i++ {
		raws = append(raws, raw(fmt.Sprintf("tool-%02d", i), fmt.Sprintf("Tool %d", i), "desc"))
	}
	idx, err := Build(raws)
	require.NoError(s.T(), err)

	result := idx.List("", 0)
	require.Len(s.T(), result.Tools, DefaultListLimit)
	require.Equal(s.T(), 60, result.Total)
}

// TestList_SummaryProjection tests the fixed summary projection drops extra fields
func (s *QueryTestSuite) TestList_SummaryProjection() {
	result := s.index.List("cli", 1)
	require.Len(s.T(), result.Tools, 1)
	require.Equal(s.T(), Summary{
		ID:                 "drush",
		Name:               "Drush",
		Description:        "CLI for automation",
		Categories:         []string{"cli"},
		Tags:               []string{"automation"},
		CompatibleVersions: []string{},
		Homepage:           "https://www.drush.org",
	}, result.Tools[0])
}

// TestSearch_ScoringExample tests the additive scoring table
func (s *QueryTestSuite) TestSearch_ScoringExample() {
	require.Equal(s.T(), 50, s.index.Score("drush", "automation"), "20 description + 30 tag")
	require.Equal(s.T(), 100+10, s.index.Score("drush", "drush"), "name plus homepage")

	idx, err := Build([]RawRecord{
		rawWith("drush", "Drush", "CLI for automation", map[string]any{
			"category": []any{"cli"},
			"tags":     []any{"automation"},
		}),
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), 50, idx.Score("drush", "automation"))
	require.Equal(s.T(), 100, idx.Score("drush", "drush"))
	require.Equal(s.T(), 0, idx.Score("missing", "drush"))
	require.Equal(s.T(), 0, idx.Score("drush", " "))
}

// TestSearch_ScoringIsUncapped tests every matching category and tag counts
func (s *QueryTestSuite) TestSearch_ScoringIsUncapped() {
	// lando: category docker 50, tag docker 30.
	require.Equal(s.T(), 80, s.index.Score("lando", "docker"))
	// ddev: category Docker 50, tag docker 30, description "Docker-based" 20.
	require.Equal(s.T(), 100, s.index.Score("ddev", "docker"))
	// Only the local-dev category contains "local-"; the description has "local development".
	require.Equal(s.T(), 50, s.index.Score("ddev", "local-"))
}

// TestSearch_URLAwardedOnce tests homepage and source contribute at most once
func (s *QueryTestSuite) TestSearch_URLAwardedOnce() {
	idx, err := Build([]RawRecord{
		rawWith("x", "X", "d", map[string]any{
			"homepage": "https://example.org/x",
			"source":   "https://example.org/x.git",
		}),
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), 10, idx.Score("x", "example.org"))
}

// TestSearch_Ordering tests descending score with insertion order on ties
func (s *QueryTestSuite) TestSearch_Ordering() {
	result, err := s.index.Search("docker", 10)
	require.NoError(s.T(), err)
	require.Equal(s.T(), "docker", result.Query)
	require.Equal(s.T(), []string{"ddev", "lando"}, ids(result.Results))
	require.Equal(s.T(), 2, result.Total)

	// "testing" scores phpstan-drupal (category 50) and backstop (category 50 + description 20).
	result, err = s.index.Search("testing", 10)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []string{"backstop", "phpstan-drupal"}, ids(result.Results))

	// "drupal": phpstan-drupal name 100 + description 20; nothing else mentions it.
	result, err = s.index.Search("drupal", 10)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []string{"phpstan-drupal"}, ids(result.Results))
}

// TestSearch_TiesKeepInsertionOrder tests equal scores are ordered by load order
func (s *QueryTestSuite) TestSearch_TiesKeepInsertionOrder() {
	idx, err := Build([]RawRecord{
		raw("c", "Gamma", "shared words"),
		raw("a", "Alpha", "shared words"),
		raw("b", "Beta", "shared words"),
	})
	require.NoError(s.T(), err)

	for i := 0; i < 5; i++ {
		result, err := idx.Search("shared", 10)
		require.NoError(s.T(), err)
		require.Equal(s.T(), []string{"c", "a", "b"}, ids(result.Results))
	}
}

// TestSearch_Deterministic tests repeated searches return identical results
func (s *QueryTestSuite) TestSearch_Deterministic() {
	first, err := s.index.Search("d", 10)
	require.NoError(s.T(), err)
	for i := 0; i < 10; i++ {
		again, err := s.index.Search("d", 10)
		require.NoError(s.T(), err)
		require.Equal(s.T(), first, again)
	}

	scores := make([]int, len(first.Results))
	for i, r := range first.Results {
		scores[i] = s.index.Score(r.ID, "d")
	}
	for i := 1; i < len(scores); i++ {
		require.GreaterOrEqual(s.T(), scores[i-1], scores[i])
	}
}

// TestSearch_LimitAndTotal tests the limit truncates after counting
func (s *QueryTestSuite) TestSearch_LimitAndTotal() {
	result, err := s.index.Search("docker", 1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []string{"ddev"}, ids(result.Results))
	require.Equal(s.T(), 2, result.Total)
}

// TestSearch_NoMatches tests zero-scoring records are excluded
func (s *QueryTestSuite) TestSearch_NoMatches() {
	result, err := s.index.Search("kubernetes", 10)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 0, result.Total)
	require.NotNil(s.T(), result.Results)
	require.Empty(s.T(), result.Results)
}

// TestSearch_CaseInsensitiveAndTrimmed tests matching ignores case and surrounding space
func (s *QueryTestSuite) TestSearch_CaseInsensitiveAndTrimmed() {
	result, err := s.index.Search("  DRUSH ", 10)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []string{"drush"}, ids(result.Results))
	require.Equal(s.T(), "  DRUSH ", result.Query, "query is echoed as received")
}

// TestSearch_InvalidQuery tests empty and whitespace queries are rejected
func (s *QueryTestSuite) TestSearch_InvalidQuery() {
	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := s.index.Search(q, 10)
		require.True(s.T(), errors.Is(err, ErrInvalidQuery), "query %q", q)
	}
	require.Equal(s.T(), 5, s.index.Len(), "index untouched")
}

// TestGet tests exact id lookup
func (s *QueryTestSuite) TestGet() {
	rec, ok := s.index.Get("drush")
	require.True(s.T(), ok)
	require.Equal(s.T(), "Drush", rec.Name)
}

// TestGet_NameFallback tests the case-insensitive name fallback
func (s *QueryTestSuite) TestGet_NameFallback() {
	byID, ok := s.index.Get("drush")
	require.True(s.T(), ok)
	byName, ok := s.index.Get("Drush")
	require.True(s.T(), ok)
	require.Equal(s.T(), byID.ID, byName.ID)

	rec, ok := s.index.Get("phpstan DRUPAL")
	require.True(s.T(), ok)
	require.Equal(s.T(), "phpstan-drupal", rec.ID)
}

// TestGet_IDTakesPriority tests an id match wins over an earlier name match
func (s *QueryTestSuite) TestGet_IDTakesPriority() {
	idx, err := Build([]RawRecord{
		raw("first", "second", "named like the other id"),
		raw("second", "Second Tool", "d"),
	})
	require.NoError(s.T(), err)

	rec, ok := idx.Get("second")
	require.True(s.T(), ok)
	require.Equal(s.T(), "second", rec.ID)
}

// TestGet_AmbiguousNameFirstWins tests the first record in insertion order wins
func (s *QueryTestSuite) TestGet_AmbiguousNameFirstWins() {
	idx, err := Build([]RawRecord{
		raw("one", "Same", "d"),
		raw("two", "same", "d"),
	})
	require.NoError(s.T(), err)

	rec, ok := idx.Get("SAME")
	require.True(s.T(), ok)
	require.Equal(s.T(), "one", rec.ID)
}

// TestGet_IDIsCaseSensitive tests id lookup does not fold case
func (s *QueryTestSuite) TestGet_IDIsCaseSensitive() {
	_, ok := s.index.Get("DDEV-missing")
	require.False(s.T(), ok)

	rec, ok := s.index.Get("ddev")
	require.True(s.T(), ok)
	require.Equal(s.T(), "ddev", rec.ID)
}

// TestGet_Miss tests a miss is a normal negative result that leaves the index alone
func (s *QueryTestSuite) TestGet_Miss() {
	before := s.index.Records()

	_, ok := s.index.Get("nonexistent-tool")
	require.False(s.T(), ok)

	nf := s.index.NotFound("nonexistent-tool")
	require.Equal(s.T(), "Tool with ID or name 'nonexistent-tool' not found", nf.Error)
	require.Empty(s.T(), nf.Suggestions)
	require.Equal(s.T(), before, s.index.Records())
}

// TestGet_MissSuggestsCloseMatches tests typos produce suggestions
func (s *QueryTestSuite) TestGet_MissSuggestsCloseMatches() {
	nf := s.index.NotFound("drsh")
	require.Equal(s.T(), []string{"drush"}, nf.Suggestions)
}

// TestGet_FullRecord tests the full record keeps passthrough fields and the assigned id
func (s *QueryTestSuite) TestGet_FullRecord() {
	idx, err := Build([]RawRecord{
		rawWith("drush", "Drush", "CLI", map[string]any{
			"id":          "legacy-id",
			"recommended": true,
			"source":      "https://github.com/drush-ops/drush",
		}),
	})
	require.NoError(s.T(), err)

	rec, ok := idx.Get("drush")
	require.True(s.T(), ok)
	fields := rec.Fields()
	require.Equal(s.T(), "drush", fields["id"])
	require.Equal(s.T(), true, fields["recommended"])
	require.Equal(s.T(), "https://github.com/drush-ops/drush", fields["sourceUrl"])
	require.NotContains(s.T(), fields, "homepage")
}

// TestQueryTestSuite runs the test suite
func TestQueryTestSuite(t *testing.T) {
	suite.Run(t, new(QueryTestSuite))
}

// TestGet_ResultIsDetached tests that writing to a returned record leaves the index unchanged
func (s *QueryTestSuite) TestGet_ResultIsDetached() {
	idx, err := Build([]RawRecord{
		rawWith("drush", "Drush", "CLI", map[string]any{
			"category": []any{"cli"},
			"tags":     []any{"automation"},
			"meta":     map[string]any{"k": "v"},
			"requires": []any{"php"},
		}),
	})
	require.NoError(s.T(), err)

	rec, ok := idx.Get("drush")
	require.True(s.T(), ok)
	rec.Categories[0] = "mutated"
	rec.Tags[0] = "mutated"
	rec.Extra["meta"].(map[string]any)["k"] = "changed"
	rec.Extra["requires"].([]any)[0] = "changed"

	again, ok := idx.Get("drush")
	require.True(s.T(), ok)
	require.Equal(s.T(), []string{"cli"}, again.Categories)
	require.Equal(s.T(), []string{"automation"}, again.Tags)
	require.Equal(s.T(), map[string]any{"k": "v"}, again.Extra["meta"])
	require.Equal(s.T(), []any{"php"}, again.Extra["requires"])

	list := idx.List("", 0)
	require.Equal(s.T(), []string{"cli"}, list.Tools[0].Categories)
	require.Equal(s.T(), 1, idx.List("cli", 0).Total)
	require.Equal(s.T(), 0, idx.List("mutated", 0).Total)
}

// TestSummariesAndRecordsAreDetached tests list results and Records copies do not alias the index
func (s *QueryTestSuite) TestSummariesAndRecordsAreDetached() {
	list := s.index.List("cli", 0)
	list.Tools[0].Categories[0] = "mutated"

	records := s.index.Records()
	records[0].Tags[0] = "mutated"

	fields := records[0].Fields()
	fields["categories"].([]string)[0] = "mutated"

	rec, ok := s.index.Get("drush")
	require.True(s.T(), ok)
	require.Equal(s.T(), []string{"cli"}, rec.Categories)
	require.Equal(s.T(), []string{"automation"}, rec.Tags)
	require.Equal(s.T(), []string{"cli"}, s.index.List("cli", 0).Tools[0].Categories)
}

// TestBuild_InputIsDetached tests that the caller's raw fields are not shared with the index
func (s *QueryTestSuite) TestBuild_InputIsDetached() {
	meta := map[string]any{"k": "v"}
	idx, err := Build([]RawRecord{
		rawWith("drush", "Drush", "CLI", map[string]any{"meta": meta}),
	})
	require.NoError(s.T(), err)

	meta["k"] = "changed"

	rec, ok := idx.Get("drush")
	require.True(s.T(), ok)
	require.Equal(s.T(), map[string]any{"k": "v"}, rec.Extra["meta"])
}
