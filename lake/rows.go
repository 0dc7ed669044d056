package lake

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/poiesic/gamescout/core"
)

// DetailRow is the bronze and silver schema for one staged detail.
// Nested parts of the detail are stored as JSON string columns.
type DetailRow struct {
	AppID               int64     `parquet:"appid"`
	Status              string    `parquet:"status"`
	Type                string    `parquet:"type"`
	Name                string    `parquet:"name"`
	RequiredAge         int64     `parquet:"required_age"`
	IsFree              bool      `parquet:"is_free"`
	DetailedDescription string    `parquet:"detailed_description"`
	AboutTheGame        string    `parquet:"about_the_game"`
	ShortDescription    string    `parquet:"short_description"`
	SupportedLanguages  string    `parquet:"supported_languages"`
	HeaderImage         string    `parquet:"header_image"`
	Website             string    `parquet:"website"`
	Background          string    `parquet:"background"`
	PCRequirements      string    `parquet:"pc_requirements"`       // JSON
	MacRequirements     string    `parquet:"mac_requirements"`      // JSON
	LinuxRequirements   string    `parquet:"linux_requirements"`    // JSON
	Developers          string    `parquet:"developers"`            // JSON
	Publishers          string    `parquet:"publishers"`            // JSON
	PriceOverview       string    `parquet:"price_overview"`        // JSON
	Platforms           string    `parquet:"platforms"`             // JSON
	Metacritic          string    `parquet:"metacritic"`            // JSON
	Categories          string    `parquet:"categories"`            // JSON
	Genres              string    `parquet:"genres"`                // JSON
	Recommendations     string    `parquet:"recommendations"`       // JSON
	ReleaseDate         string    `parquet:"release_date"`          // JSON
	ContentDescriptors  string    `parquet:"content_descriptors"`   // JSON
	DLC                 string    `parquet:"dlc"`                   // JSON
	Packages            string    `parquet:"packages"`              // JSON
	FetchedAt           time.Time `parquet:"fetched_at"`
}

// NewDetailRow flattens a staged detail into a row.
func NewDetailRow(s core.StagedDetail) (DetailRow, error) {
	row := DetailRow{
		AppID:  int64(s.AppID),
		Status: string(s.Status),
	}
	d := s.Detail
	if d == nil {
		return row, nil
	}

	row.Type = d.Type
	row.Name = d.Name
	row.RequiredAge = int64(d.RequiredAge)
	row.IsFree = d.IsFree
	row.DetailedDescription = d.DetailedDescription
	row.AboutTheGame = d.AboutTheGame
	row.ShortDescription = d.ShortDescription
	row.SupportedLanguages = d.SupportedLanguages
	row.HeaderImage = d.HeaderImage
	row.Website = d.Website
	row.Background = d.Background
	row.FetchedAt = d.FetchedAt

	nested := []struct {
		dst *string
		src any
	}{
		{&row.PCRequirements, d.PCRequirements},
		{&row.MacRequirements, d.MacRequirements},
		{&row.LinuxRequirements, d.LinuxRequirements},
		{&row.Developers, d.Developers},
		{&row.Publishers, d.Publishers},
		{&row.PriceOverview, d.PriceOverview},
		{&row.Platforms, d.Platforms},
		{&row.Metacritic, d.Metacritic},
		{&row.Categories, d.Categories},
		{&row.Genres, d.Genres},
		{&row.Recommendations, d.Recommendations},
		{&row.ReleaseDate, d.ReleaseDate},
		{&row.ContentDescriptors, d.ContentDescriptors},
		{&row.DLC, d.DLC},
		{&row.Packages, d.Packages},
	}
	for _, n := range nested {
		data, err := json.Marshal(n.src)
		if err != nil {
			return DetailRow{}, fmt.Errorf("failed to marshal appid %d: %w", s.AppID, err)
		}
		*n.dst = string(data)
	}
	return row, nil
}

// Staged rebuilds the staged detail held by the row. Empty JSON columns,
// as found in batches written before a column existed, decode as zero values.
func (r DetailRow) Staged() (core.StagedDetail, error) {
	s := core.StagedDetail{
		AppID:  core.AppID(r.AppID),
		Status: core.DetailStatus(r.Status),
	}
	if s.Status == "" {
		s.Status = core.StatusFound
	}
	if s.Status == core.StatusNotFound {
		return s, nil
	}

	d := &core.AppDetail{
		Type:                r.Type,
		Name:                r.Name,
		SteamAppID:          core.AppID(r.AppID),
		RequiredAge:         core.FlexInt(r.RequiredAge),
		IsFree:              r.IsFree,
		DetailedDescription: r.DetailedDescription,
		AboutTheGame:        r.AboutTheGame,
		ShortDescription:    r.ShortDescription,
		SupportedLanguages:  r.SupportedLanguages,
		HeaderImage:         r.HeaderImage,
		Website:             r.Website,
		Background:          r.Background,
		FetchedAt:           r.FetchedAt,
	}

	nested := []struct {
		src string
		dst any
	}{
		{r.PCRequirements, &d.PCRequirements},
		{r.MacRequirements, &d.MacRequirements},
		{r.LinuxRequirements, &d.LinuxRequirements},
		{r.Developers, &d.Developers},
		{r.Publishers, &d.Publishers},
		{r.PriceOverview, &d.PriceOverview},
		{r.Platforms, &d.Platforms},
		{r.Metacritic, &d.Metacritic},
		{r.Categories, &d.Categories},
		{r.Genres, &d.Genres},
		{r.Recommendations, &d.Recommendations},
		{r.ReleaseDate, &d.ReleaseDate},
		{r.ContentDescriptors, &d.ContentDescriptors},
		{r.DLC, &d.DLC},
		{r.Packages, &d.Packages},
	}
	for _, n := range nested {
		if n.src == "" {
			continue
		}
		if err := json.Unmarshal([]byte(n.src), n.dst); err != nil {
			return core.StagedDetail{}, fmt.Errorf("failed to unmarshal appid %d: %w", r.AppID, err)
		}
	}

	s.Detail = d
	return s, nil
}

// GameRow is the gold schema for one normalized record.
type GameRow struct {
	AppID               int64    `parquet:"id"`
	Name                string   `parquet:"name"`
	IsFree              bool     `parquet:"is_free"`
	DetailedDescription string   `parquet:"detailed_description"`
	AboutTheGame        string   `parquet:"about_the_game"`
	ShortDescription    string   `parquet:"short_description"`
	SupportedLanguages  string   `parquet:"supported_languages"`
	PCMinimum           string   `parquet:"pc_requirements_min"`
	PCRecommended       string   `parquet:"pc_requirements_rec"`
	MacMinimum          string   `parquet:"mac_requirements_min"`
	MacRecommended      string   `parquet:"mac_requirements_rec"`
	LinuxMinimum        string   `parquet:"linux_requirements_min"`
	LinuxRecommended    string   `parquet:"linux_requirements_rec"`
	Requirements        string   `parquet:"requirements"` // JSON, parsed fields per slot
	Currency            string   `parquet:"currency"`
	Price               float64  `parquet:"price"`
	Categories          []string `parquet:"categories,list"`
	Genres              []string `parquet:"genres,list"`
	Recommendations     int64    `parquet:"recommendations"`
	ReleaseDate         string   `parquet:"release_date"`
	ContentNotes        string   `parquet:"content_notes"`
	HeaderImage         string   `parquet:"header_image"`
	Website             string   `parquet:"website"`
	Developers          []string `parquet:"developers,list"`
	Publishers          []string `parquet:"publishers,list"`
}

// requirementTextColumns maps each requirement slot to its text column.
func (r *GameRow) requirementTextColumns() map[[2]string]*string {
	return map[[2]string]*string{
		{string(core.PlatformWindows), string(core.LevelMinimum)}:     &r.PCMinimum,
		{string(core.PlatformWindows), string(core.LevelRecommended)}: &r.PCRecommended,
		{string(core.PlatformMac), string(core.LevelMinimum)}:         &r.MacMinimum,
		{string(core.PlatformMac), string(core.LevelRecommended)}:     &r.MacRecommended,
		{string(core.PlatformLinux), string(core.LevelMinimum)}:       &r.LinuxMinimum,
		{string(core.PlatformLinux), string(core.LevelRecommended)}:   &r.LinuxRecommended,
	}
}

// NewGameRow flattens a gold record into a row.
func NewGameRow(g *core.Game) (GameRow, error) {
	row := GameRow{
		AppID:               int64(g.AppID),
		Name:                g.Name,
		IsFree:              g.IsFree,
		DetailedDescription: g.DetailedDescription,
		AboutTheGame:        g.AboutTheGame,
		ShortDescription:    g.ShortDescription,
		SupportedLanguages:  g.SupportedLanguages,
		Currency:            g.Currency,
		Price:               g.Price,
		Categories:          g.Categories,
		Genres:              g.Genres,
		Recommendations:     g.Recommendations,
		ReleaseDate:         g.ReleaseDate,
		ContentNotes:        g.ContentNotes,
		HeaderImage:         g.HeaderImage,
		Website:             g.Website,
		Developers:          g.Developers,
		Publishers:          g.Publishers,
	}

	columns := row.requirementTextColumns()
	for _, req := range g.Requirements {
		if col, ok := columns[[2]string{string(req.Platform), string(req.Level)}]; ok {
			*col = req.Text
		}
	}

	data, err := json.Marshal(g.Requirements)
	if err != nil {
		return GameRow{}, fmt.Errorf("failed to marshal requirements for id %d: %w", g.AppID, err)
	}
	row.Requirements = string(data)
	return row, nil
}

// Game rebuilds the gold record held by the row.
func (r GameRow) Game() (*core.Game, error) {
	g := &core.Game{
		AppID:               core.AppID(r.AppID),
		Name:                r.Name,
		IsFree:              r.IsFree,
		DetailedDescription: r.DetailedDescription,
		AboutTheGame:        r.AboutTheGame,
		ShortDescription:    r.ShortDescription,
		SupportedLanguages:  r.SupportedLanguages,
		Currency:            r.Currency,
		Price:               r.Price,
		Categories:          r.Categories,
		Genres:              r.Genres,
		Recommendations:     r.Recommendations,
		ReleaseDate:         r.ReleaseDate,
		ContentNotes:        r.ContentNotes,
		HeaderImage:         r.HeaderImage,
		Website:             r.Website,
		Developers:          r.Developers,
		Publishers:          r.Publishers,
	}
	if r.Requirements != "" {
		if err := json.Unmarshal([]byte(r.Requirements), &g.Requirements); err != nil {
			return nil, fmt.Errorf("failed to unmarshal requirements for id %d: %w", r.AppID, err)
		}
	}
	return g, nil
}
