package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier used for secondary index keys.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// AppID is the catalog's primary identifier for an item.
type AppID int64

// UnavailableMarker is written into the name of a placeholder detail.
const UnavailableMarker = "N/A"

// GameType is the detail type retained by the gold stage.
const GameType = "game"

// CatalogEntry is one row of the catalog listing. Immutable once fetched.
type CatalogEntry struct {
	AppID AppID  `json:"appid"`
	Name  string `json:"name"`
}

// Requirements holds the raw requirement text for a single platform.
type Requirements struct {
	Minimum     string `json:"minimum"`
	Recommended string `json:"recommended"`
}

// PriceOverview is the price block of a detail record. Amounts are in cents.
type PriceOverview struct {
	Currency         string `json:"currency"`
	Initial          int64  `json:"initial"`
	Final            int64  `json:"final"`
	DiscountPercent  int    `json:"discount_percent"`
	InitialFormatted string `json:"initial_formatted"`
	FinalFormatted   string `json:"final_formatted"`
}

// Label is a category or genre entry as delivered by the detail API.
type Label struct {
	Description string `json:"description"`
}

// Platforms flags which operating systems an item supports.
type Platforms struct {
	Windows bool `json:"windows"`
	Mac     bool `json:"mac"`
	Linux   bool `json:"linux"`
}

// Metacritic holds the review aggregate, when present.
type Metacritic struct {
	Score int    `json:"score"`
	URL   string `json:"url"`
}

// Recommendations holds the user recommendation count.
type Recommendations struct {
	Total int64 `json:"total"`
}

// ReleaseDate is the release block of a detail record.
type ReleaseDate struct {
	ComingSoon bool   `json:"coming_soon"`
	Date       string `json:"date"`
}

// ContentDescriptors carries mature-content notes.
type ContentDescriptors struct {
	IDs   []int  `json:"ids"`
	Notes string `json:"notes"`
}

// AppDetail is the raw detail record for one identifier.
// A placeholder detail carries only the identifier and UnavailableMarker as its name.
type AppDetail struct {
	Type                string             `json:"type"`
	Name                string             `json:"name"`
	SteamAppID          AppID              `json:"steam_appid"`
	RequiredAge         FlexInt            `json:"required_age"`
	IsFree              bool               `json:"is_free"`
	DLC                 []int64            `json:"dlc"`
	DetailedDescription string             `json:"detailed_description"`
	AboutTheGame        string             `json:"about_the_game"`
	ShortDescription    string             `json:"short_description"`
	SupportedLanguages  string             `json:"supported_languages"`
	HeaderImage         string             `json:"header_image"`
	Website             string             `json:"website"`
	PCRequirements      FlexRequirements   `json:"pc_requirements"`
	MacRequirements     FlexRequirements   `json:"mac_requirements"`
	LinuxRequirements   FlexRequirements   `json:"linux_requirements"`
	Developers          []string           `json:"developers"`
	Publishers          []string           `json:"publishers"`
	PriceOverview       *PriceOverview     `json:"price_overview"`
	Packages            []int64            `json:"packages"`
	Platforms           Platforms          `json:"platforms"`
	Metacritic          *Metacritic        `json:"metacritic"`
	Categories          []Label            `json:"categories"`
	Genres              []Label            `json:"genres"`
	Recommendations     *Recommendations   `json:"recommendations"`
	ReleaseDate         ReleaseDate        `json:"release_date"`
	ContentDescriptors  ContentDescriptors `json:"content_descriptors"`
	Background          string             `json:"background"`

	FetchedAt time.Time `json:"-"`
}

// NewPlaceholder returns the detail substituted for an identifier whose
// retrieval permanently failed. It still occupies a row so the identifier
// is never selected again.
func NewPlaceholder(id AppID) *AppDetail {
	return &AppDetail{
		SteamAppID: id,
		Name:       UnavailableMarker,
		Website:    UnavailableMarker,
		FetchedAt:  time.Now().UTC(),
	}
}

// IsPlaceholder reports whether d was produced by retry exhaustion.
func (d *AppDetail) IsPlaceholder() bool {
	return d.Type == "" && d.Name == UnavailableMarker
}

// DetailStatus records how a staged row came to exist.
type DetailStatus string

const (
	// StatusFound rows carry a decoded detail.
	StatusFound DetailStatus = "found"
	// StatusUnavailable rows carry a placeholder after retries ran out.
	StatusUnavailable DetailStatus = "unavailable"
	// StatusNotFound rows are tombstones for identifiers the detail API
	// does not know. They keep the identifier from being selected again.
	StatusNotFound DetailStatus = "not_found"
)

// StagedDetail is one bronze row: the outcome of fetching a single identifier.
// Detail is nil for StatusNotFound.
type StagedDetail struct {
	AppID  AppID
	Status DetailStatus
	Detail *AppDetail
}

// NewStagedDetail classifies a retrier result. A nil detail is a tombstone.
func NewStagedDetail(id AppID, detail *AppDetail) StagedDetail {
	switch {
	case detail == nil:
		return StagedDetail{AppID: id, Status: StatusNotFound}
	case detail.IsPlaceholder():
		return StagedDetail{AppID: id, Status: StatusUnavailable, Detail: detail}
	default:
		return StagedDetail{AppID: id, Status: StatusFound, Detail: detail}
	}
}

// Platform names the operating system a requirement applies to.
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformMac     Platform = "mac"
	PlatformLinux   Platform = "linux"
)

// Level distinguishes minimum from recommended requirements.
type Level string

const (
	LevelMinimum     Level = "min"
	LevelRecommended Level = "rec"
)

// Platforms and Levels list the requirement slots in canonical order.
var (
	AllPlatforms = []Platform{PlatformWindows, PlatformMac, PlatformLinux}
	AllLevels    = []Level{LevelMinimum, LevelRecommended}
)

// ExtraKey is the reserved bucket for requirement fragments without a key.
const ExtraKey = "extra"

// Requirement is one parsed requirement slot of a gold record.
type Requirement struct {
	Platform Platform          `json:"platform"`
	Level    Level             `json:"level"`
	Text     string            `json:"text"`
	Fields   map[string]string `json:"fields"`
}

// Game is a gold record: a normalized, query-ready item.
type Game struct {
	AppID               AppID         `json:"id"`
	Name                string        `json:"name"`
	IsFree              bool          `json:"is_free"`
	DetailedDescription string        `json:"detailed_description"`
	AboutTheGame        string        `json:"about_the_game"`
	ShortDescription    string        `json:"short_description"`
	SupportedLanguages  string        `json:"supported_languages"`
	Requirements        []Requirement `json:"requirements"`
	Currency            string        `json:"currency"`
	Price               float64       `json:"price"` // decimal units; 0 when missing
	Categories          []string      `json:"categories"`
	Genres              []string      `json:"genres"`
	Recommendations     int64         `json:"recommendations"`
	ReleaseDate         string        `json:"release_date"`
	ContentNotes        string        `json:"content_notes"`
	HeaderImage         string        `json:"header_image"`
	Website             string        `json:"website"`
	Developers          []string      `json:"developers"`
	Publishers          []string      `json:"publishers"`
}

// Requirement returns the requirement slot for platform p at level l.
// The zero value is returned when the slot is empty.
func (g *Game) Requirement(p Platform, l Level) Requirement {
	for _, r := range g.Requirements {
		if r.Platform == p && r.Level == l {
			return r
		}
	}
	return Requirement{Platform: p, Level: l}
}

// EmbeddingRecord is the indexed vector for one gold record.
type EmbeddingRecord struct {
	AppID     AppID     `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchFilter holds the structured predicates of a hybrid search.
// Empty Categories or Genres place no restriction on that field.
type SearchFilter struct {
	Categories []string
	Genres     []string
	PriceMin   float64
	PriceMax   float64
	Limit      int
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Game     *Game
	Distance float32
}

// Checkpoint records the last completed run of a pipeline stage.
type Checkpoint struct {
	Stage     string    `json:"stage"`
	Processed int       `json:"processed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Matches reports whether g passes the structured predicates of f.
// A zero PriceMax places no upper bound on price.
func (f SearchFilter) Matches(g *Game) bool {
	if g.Price < f.PriceMin {
		return false
	}
	if f.PriceMax > 0 && g.Price > f.PriceMax {
		return false
	}
	if len(f.Categories) > 0 && !intersects(f.Categories, g.Categories) {
		return false
	}
	if len(f.Genres) > 0 && !intersects(f.Genres, g.Genres) {
		return false
	}
	return true
}

func intersects(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}
