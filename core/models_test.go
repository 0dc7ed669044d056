package core

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "simple label", content: "Single-player"},
		{name: "empty string", content: ""},
		{name: "label with spaces", content: "Steam Achievements"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IDFromContent(tt.content), IDFromContent(tt.content))
		})
	}

	assert.NotEqual(t, IDFromContent("Action"), IDFromContent("Adventure"))
}

func TestAppDetail_Decode(t *testing.T) {
	payload := `{
		"type": "game",
		"name": "Test Game",
		"steam_appid": 10,
		"required_age": "17",
		"is_free": false,
		"pc_requirements": {"minimum": "<strong>Minimum:</strong>", "recommended": ""},
		"mac_requirements": [],
		"linux_requirements": [],
		"price_overview": {"currency": "USD", "initial": 999, "final": 999},
		"categories": [{"id": 2, "description": "Single-player"}],
		"genres": [{"id": "1", "description": "Action"}],
		"recommendations": {"total": 42},
		"release_date": {"coming_soon": false, "date": "1 Nov, 2000"}
	}`

	var detail AppDetail
	require.NoError(t, json.Unmarshal([]byte(payload), &detail))

	assert.Equal(t, AppID(10), detail.SteamAppID)
	assert.Equal(t, FlexInt(17), detail.RequiredAge)
	assert.Equal(t, "<strong>Minimum:</strong>", detail.PCRequirements.Minimum)
	assert.Empty(t, detail.MacRequirements.Minimum)
	assert.Empty(t, detail.LinuxRequirements.Recommended)
	require.NotNil(t, detail.PriceOverview)
	assert.Equal(t, int64(999), detail.PriceOverview.Final)
	require.Len(t, detail.Categories, 1)
	assert.Equal(t, "Single-player", detail.Categories[0].Description)
	assert.Equal(t, "Action", detail.Genres[0].Description)
	assert.Equal(t, int64(42), detail.Recommendations.Total)
	assert.False(t, detail.IsPlaceholder())
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		input string
		want  FlexInt
	}{
		{`0`, 0},
		{`18`, 18},
		{`"16"`, 16},
		{`""`, 0},
		{`"18+"`, 0},
		{`null`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got FlexInt
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPlaceholder(t *testing.T) {
	p := NewPlaceholder(77)
	assert.Equal(t, AppID(77), p.SteamAppID)
	assert.Equal(t, UnavailableMarker, p.Name)
	assert.True(t, p.IsPlaceholder())
	assert.NoError(t, ValidateAppDetail(p))
}

func TestGame_Requirement(t *testing.T) {
	g := &Game{
		Requirements: []Requirement{
			{Platform: PlatformWindows, Level: LevelMinimum, Text: "OS: Windows 10"},
		},
	}

	got := g.Requirement(PlatformWindows, LevelMinimum)
	assert.Equal(t, "OS: Windows 10", got.Text)

	missing := g.Requirement(PlatformLinux, LevelRecommended)
	assert.Empty(t, missing.Text)
	assert.Equal(t, PlatformLinux, missing.Platform)
}

func TestNewStagedDetail(t *testing.T) {
	tombstone := NewStagedDetail(7, nil)
	assert.Equal(t, StatusNotFound, tombstone.Status)
	assert.Nil(t, tombstone.Detail)

	placeholder := NewStagedDetail(8, NewPlaceholder(8))
	assert.Equal(t, StatusUnavailable, placeholder.Status)

	found := NewStagedDetail(9, &AppDetail{Type: "game", Name: "Nine", SteamAppID: 9})
	assert.Equal(t, StatusFound, found.Status)
	assert.Equal(t, AppID(9), found.AppID)
}

func TestSearchFilter_Matches(t *testing.T) {
	game := &Game{
		AppID:      1,
		Price:      9.99,
		Categories: []string{"Single-player", "Steam Achievements"},
		Genres:     []string{"Action"},
	}

	tests := []struct {
		name   string
		filter SearchFilter
		want   bool
	}{
		{name: "empty filter", filter: SearchFilter{}, want: true},
		{name: "zero max is unbounded", filter: SearchFilter{PriceMin: 0, PriceMax: 0}, want: true},
		{name: "inside range", filter: SearchFilter{PriceMin: 5, PriceMax: 10}, want: true},
		{name: "inclusive bounds", filter: SearchFilter{PriceMin: 9.99, PriceMax: 9.99}, want: true},
		{name: "below min", filter: SearchFilter{PriceMin: 10}, want: false},
		{name: "above max", filter: SearchFilter{PriceMax: 5}, want: false},
		{name: "category intersects", filter: SearchFilter{Categories: []string{"Multi-player", "Single-player"}}, want: true},
		{name: "category disjoint", filter: SearchFilter{Categories: []string{"Multi-player"}}, want: false},
		{name: "genre intersects", filter: SearchFilter{Genres: []string{"Action"}}, want: true},
		{name: "genre disjoint", filter: SearchFilter{Genres: []string{"Puzzle"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(game))
		})
	}
}
