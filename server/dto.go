package server

import (
	"fmt"

	"github.com/poiesic/gamescout/core"
)

// StoreURLFormat builds the public store page of an item.
const StoreURLFormat = "https://store.steampowered.com/app/%d"

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query      string   `json:"query"`
	Category   []string `json:"category"`
	Genre      []string `json:"genre"`
	PriceStart float64  `json:"price_start"`
	PriceEnd   float64  `json:"price_end"`
	Limit      int      `json:"limit"`
}

// Filter converts the request predicates to a search filter.
func (r SearchRequest) Filter() core.SearchFilter {
	return core.SearchFilter{
		Categories: r.Category,
		Genres:     r.Genre,
		PriceMin:   r.PriceStart,
		PriceMax:   r.PriceEnd,
		Limit:      r.Limit,
	}
}

// GameResult is one ranked item as returned to clients.
type GameResult struct {
	ID                core.AppID `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Price             float64    `json:"price"`
	Image             string     `json:"image"`
	Link              string     `json:"link"`
	PCRequirements    string     `json:"pc_requirements"`
	MacRequirements   string     `json:"mac_requirements"`
	LinuxRequirements string     `json:"linux_requirements"`
	Genres            []string   `json:"genres"`
	Categories        []string   `json:"categories"`
	Distance          float32    `json:"distance"`
}

// NewGameResult projects a search hit. Requirements are the minimum text
// for each platform.
func NewGameResult(r *core.SearchResult) GameResult {
	g := r.Game
	return GameResult{
		ID:                g.AppID,
		Name:              g.Name,
		Description:       g.ShortDescription,
		Price:             g.Price,
		Image:             g.HeaderImage,
		Link:              fmt.Sprintf(StoreURLFormat, g.AppID),
		PCRequirements:    g.Requirement(core.PlatformWindows, core.LevelMinimum).Text,
		MacRequirements:   g.Requirement(core.PlatformMac, core.LevelMinimum).Text,
		LinuxRequirements: g.Requirement(core.PlatformLinux, core.LevelMinimum).Text,
		Genres:            nonNil(g.Genres),
		Categories:        nonNil(g.Categories),
		Distance:          r.Distance,
	}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
