package outline

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_ppt_generator/config"
)

func TestBuildSingleHeadingWithBullets(t *testing.T) {
	got := Build("# Title\n\n- point A\n- point B", "", false, config.DefaultLimits())
	want := Outline{Slides: []Slide{{
		Title:      "Title",
		Bullets:    []string{"point A", "point B"},
		LayoutHint: HintTitle,
	}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildUsesArchetypeSections(t *testing.T) {
	text := "Factories lose a week to manual inspection.\n\n" +
		"Our camera rig flags defects in seconds.\n\n" +
		"Every mid-size plant is a buyer."
	got := Build(text, "investor pitch deck", false, config.DefaultLimits())

	var titles []string
	for _, s := range got.Slides {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"Problem", "Solution", "Market"}, titles)
}

func TestBuildArchetypeFallsBackToNumbering(t *testing.T) {
	limits := config.DefaultLimits()
	var paras []string
	for i := 0; i < 8; i++ {
		paras = append(paras, fmt.Sprintf("Step number %d is done.", i+1))
	}
	lesson, ok := Classify("lesson")
	require.True(t, ok)

	got := Compile(Tokenize(strings.Join(paras, "\n\n")), Options{Archetype: &lesson}, limits)
	var titles []string
	for _, s := range got.Slides {
		titles = append(titles, s.Title)
	}
	// Eight units over five sections is two per slide.
	assert.Equal(t, []string{"Objectives", "Key Concepts", "Examples", "Practice Questions"}, titles)

	// Groups are capped at the bullet limit, so twelve units at two per
	// slide outrun the five section labels.
	limits.MaxBulletsPerSlide = 2
	for i := 8; i < 12; i++ {
		paras = append(paras, fmt.Sprintf("Step number %d is done.", i+1))
	}
	got = Compile(Tokenize(strings.Join(paras, "\n\n")), Options{Archetype: &lesson}, limits)
	require.Len(t, got.Slides, 6)
	assert.Equal(t, "Summary", got.Slides[4].Title)
	assert.Equal(t, "Slide 6", got.Slides[5].Title)
}

func TestBuildWithoutHeadingsSynthesizesTitles(t *testing.T) {
	text := "Churn fell, driven by onboarding. Support tickets halved. NPS rose.\n\n" +
		"Hiring slowed in Q3. Two roles remain open. Budget is flat."
	got := Build(text, "", false, config.DefaultLimits())
	require.Len(t, got.Slides, 3)
	assert.Equal(t, "Churn fell", got.Slides[0].Title)
	assert.Equal(t, []string{"Churn fell, driven by onboarding.", "Support tickets halved."}, got.Slides[0].Bullets)
	assert.Equal(t, "NPS rose", got.Slides[1].Title)
	assert.Equal(t, "Two roles remain open", got.Slides[2].Title)
}

func TestBuildEmptyInputYieldsOverview(t *testing.T) {
	for _, text := range []string{"", "   \n\n  ", "<!-- only html -->"} {
		got := Build(text, "pitch", true, config.DefaultLimits())
		want := Outline{Slides: []Slide{{
			Title:      "Overview",
			Bullets:    []string{},
			Notes:      "Overview",
			LayoutHint: HintTitle,
		}}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Build(%q) mismatch (-want +got):\n%s", text, diff)
		}
	}
}

func TestCompileLayoutHints(t *testing.T) {
	text := strings.Join([]string{
		"# Deck",
		"intro",
		"# Part Two",
		"# Wisdom",
		"> \"Simplicity is prerequisite for reliability.\"",
		"# Details",
		"- one",
		"- two",
		"# Short",
		"Just a line.",
	}, "\n\n")
	got := Build(text, "", false, config.DefaultLimits())
	hints := make([]LayoutHint, 0, len(got.Slides))
	for _, s := range got.Slides {
		hints = append(hints, s.LayoutHint)
	}
	assert.Equal(t, []LayoutHint{HintTitle, HintSectionHeader, HintQuote, HintTitleAndBullets, HintSectionHeader}, hints)
}

func TestCompileSplitsLongParagraphsAtSentences(t *testing.T) {
	limits := config.DefaultLimits()
	limits.MaxBulletChars = 40
	got := Build("# Notes\n\nFirst sentence is here. Second one is here too. Third is short.", "", false, limits)
	require.Len(t, got.Slides, 1)
	assert.Equal(t, []string{"First sentence is here.", "Second one is here too. Third is short."}, got.Slides[0].Bullets)
}

func TestCompileCodeAndNestedBullets(t *testing.T) {
	text := "# Setup\n\n- install\n  - run make\n\n```sh\nmake build\n```\n"
	got := Build(text, "", false, config.DefaultLimits())
	require.Len(t, got.Slides, 1)
	bullets := got.Slides[0].Bullets
	assert.Equal(t, []string{"install", SubBulletPrefix + "run make", CodeBulletPrefix + "make build"}, bullets)
	assert.True(t, IsCode(bullets[2]))
	level, txt := BulletLevel(bullets[1])
	assert.Equal(t, 1, level)
	assert.Equal(t, "run make", txt)
}

func TestCompileKeepsCodeMarkerWhenTruncating(t *testing.T) {
	limits := config.DefaultLimits()
	limits.MaxBulletChars = 12
	got := Build("# T\n\n```\n            deeply indented code\n```", "", false, limits)
	require.Len(t, got.Slides, 1)
	require.Len(t, got.Slides[0].Bullets, 1)
	b := got.Slides[0].Bullets[0]
	assert.True(t, IsCode(b), "%q lost its code marker", b)
	assert.LessOrEqual(t, utf8.RuneCountInString(b), limits.MaxBulletChars)
}

func TestCompileDropsDuplicateAndOverflowBullets(t *testing.T) {
	limits := config.DefaultLimits()
	limits.MaxBulletsPerSlide = 3
	text := "# List\n\n- a\n- a\n- b\n- c\n- d\n- e\n"
	got := Build(text, "", false, limits)
	assert.Equal(t, []string{"a", "b", "c"}, got.Slides[0].Bullets)
}

func TestCompileClampsSlideCountKeepingTitleSlide(t *testing.T) {
	limits := config.DefaultLimits()
	limits.MaxTotalSlides = 2
	got := Build("# One\n\n# Two\n\n# Three\n\n# Four", "", false, limits)
	require.Len(t, got.Slides, 2)
	assert.Equal(t, "One", got.Slides[0].Title)
	assert.Equal(t, HintTitle, got.Slides[0].LayoutHint)
	assert.Equal(t, "Two", got.Slides[1].Title)
}

func TestCompilePreambleBeforeFirstHeading(t *testing.T) {
	got := Build("Welcome everyone.\n\n# Agenda\n\n- intro\n- demo", "", false, config.DefaultLimits())
	require.Len(t, got.Slides, 2)
	assert.Equal(t, "Welcome everyone", got.Slides[0].Title)
	assert.Equal(t, "Agenda", got.Slides[1].Title)
}

func TestCompileNotes(t *testing.T) {
	limits := config.DefaultLimits()
	got := Build("# Title\n\n- point A\n- point B\n\n# Solo\n\nOnly one thing matters here!", "", true, limits)
	require.Len(t, got.Slides, 2)
	assert.Equal(t, "Key points: point A; point B.", got.Slides[0].Notes)
	assert.Equal(t, "Only one thing matters here.", got.Slides[1].Notes)

	got = Build("# Title\n\n- point A", "", false, limits)
	assert.Empty(t, got.Slides[0].Notes)
	raw, err := json.Marshal(got.Slides[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "notes")
}

func TestCompileIsDeterministic(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma. Delta epsilon! ", 50) + "\n\n# H\n\n- x\n- y\n"
	limits := config.DefaultLimits()
	first, err := json.Marshal(Build(text, "research talk", true, limits))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := json.Marshal(Build(text, "research talk", true, limits))
		require.NoError(t, err)
		require.Equal(t, string(first), string(again))
	}
}

func TestCompileRespectsLimits(t *testing.T) {
	limits := config.DefaultLimits()
	limits.MaxTotalSlides = 5
	limits.MaxBulletsPerSlide = 3
	limits.MaxTitleChars = 12
	limits.MaxBulletChars = 20
	limits.MaxNotesChars = 25

	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "# A rather long heading number %d\n\n", i)
		for j := 0; j < 10; j++ {
			fmt.Fprintf(&b, "- bullet %d of heading %d with extra words attached\n", j, i)
		}
		b.WriteString("\n```\n" + strings.Repeat("code line\n", 20) + "```\n\n")
		b.WriteString(strings.Repeat("A sentence that keeps going and going. ", 10) + "\n\n")
	}
	inputs := []string{b.String(), strings.Repeat("word ", 5000), strings.Repeat("x. ", 3000)}

	for _, in := range inputs {
		for _, guidance := range []string{"", "investor pitch", "sop"} {
			o := Build(in, guidance, true, limits)
			require.NotEmpty(t, o.Slides)
			require.LessOrEqual(t, len(o.Slides), limits.MaxTotalSlides)
			for _, s := range o.Slides {
				assert.NotEmpty(t, s.Title)
				assert.LessOrEqual(t, utf8.RuneCountInString(s.Title), limits.MaxTitleChars, s.Title)
				assert.LessOrEqual(t, utf8.RuneCountInString(s.Notes), limits.MaxNotesChars, s.Notes)
				require.LessOrEqual(t, len(s.Bullets), limits.MaxBulletsPerSlide)
				for _, bullet := range s.Bullets {
					assert.LessOrEqual(t, utf8.RuneCountInString(bullet), limits.MaxBulletChars, bullet)
				}
			}
		}
	}
}

func TestBuildRedactsBeforeCompiling(t *testing.T) {
	text := "# Contacts\n\n- mail ops@example.com\n- see https://internal.example.com/runbook\n- key sk-abcdefghijklmnopqrstuv"
	got := Build(text, "", false, config.DefaultLimits())
	assert.Equal(t, []string{"mail [redacted]", "see [redacted]", "key [redacted]"}, got.Slides[0].Bullets)
}

func TestNormalizeExternalOutline(t *testing.T) {
	limits := config.DefaultLimits()
	limits.MaxTitleChars = 10
	limits.MaxBulletsPerSlide = 2

	in := Outline{Slides: []Slide{
		{Title: "  A very long\ttitle here ", Bullets: []string{"one\x00", "two", "three"}, LayoutHint: HintTwoColumn},
		{Title: "   ", Bullets: []string{"", "  "}},
		{Title: "", Bullets: []string{"orphan bullet"}, LayoutHint: LayoutHint(42)},
		{Title: "Links", Bullets: []string{"https://example.com/secret"}, Notes: "ask bob@example.com"},
	}}
	got := Normalize(in, true, limits)
	want := Outline{Slides: []Slide{
		{Title: "A very lo…", Bullets: []string{"one", "two"}, Notes: "Key points: one; two.", LayoutHint: HintTwoColumn},
		{Title: "Slide 2", Bullets: []string{"orphan bullet"}, Notes: "orphan bullet.", LayoutHint: HintTitleAndBullets},
		{Title: "Links", Bullets: []string{"[redacted]"}, Notes: "ask [redacted]", LayoutHint: HintTitleAndBullets},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeEmptyOutline(t *testing.T) {
	got := Normalize(Outline{}, false, config.DefaultLimits())
	require.Len(t, got.Slides, 1)
	assert.Equal(t, "Overview", got.Slides[0].Title)
	assert.NotNil(t, got.Slides[0].Bullets)
	assert.Empty(t, got.Slides[0].Notes)
}

func TestOutlineJSONInterchange(t *testing.T) {
	raw := `{"slides":[
		{"title":"Intro","bullets":["a"],"layout_hint":"Title Slide"},
		{"title":"Compare","bullets":["x","y"],"layout_hint":"Two Content"},
		{"title":"Other","bullets":[],"layout_hint":"something new"}
	]}`
	var o Outline
	require.NoError(t, json.Unmarshal([]byte(raw), &o))
	require.Len(t, o.Slides, 3)
	assert.Equal(t, HintTitle, o.Slides[0].LayoutHint)
	assert.Equal(t, HintTwoColumn, o.Slides[1].LayoutHint)
	assert.Equal(t, HintTitleAndBullets, o.Slides[2].LayoutHint)

	out, err := json.Marshal(o.Slides[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Compare","bullets":["x","y"],"layout_hint":"two_column"}`, string(out))
}
