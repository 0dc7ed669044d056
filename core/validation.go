// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "fmt"

// ValidateAppDetail validates a decoded detail before it is staged. The
// detail client reports details failing it as not found.
//
// Validation rules:
//   - SteamAppID must be positive
//   - Name must not be empty (placeholders carry UnavailableMarker)
//
// NOT validated (optional in the source API):
//   - Type, descriptions, requirements, price
func ValidateAppDetail(detail *AppDetail) error {
	if detail == nil {
		return fmt.Errorf("%w: detail is nil", ErrInvalidAppDetail)
	}
	if detail.SteamAppID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidAppDetail, ErrInvalidAppID)
	}
	if detail.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAppDetail, ErrEmptyName)
	}
	return nil
}

// ValidateGame validates a gold record before it is stored.
func ValidateGame(game *Game) error {
	if game == nil {
		return fmt.Errorf("%w: game is nil", ErrInvalidGame)
	}
	if game.AppID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidGame, ErrInvalidAppID)
	}
	if game.Price < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidGame, ErrNegativePrice)
	}
	return nil
}

// ValidateSearchFilter validates the structured part of a search.
// A zero PriceMax means no upper bound.
func ValidateSearchFilter(filter *SearchFilter) error {
	if filter == nil {
		return fmt.Errorf("%w: filter is nil", ErrInvalidFilter)
	}
	if filter.PriceMin < 0 || filter.PriceMax < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidFilter, ErrNegativePrice)
	}
	if filter.PriceMax > 0 && filter.PriceMin > filter.PriceMax {
		return fmt.Errorf("%w: %w", ErrInvalidFilter, ErrInvertedPriceRange)
	}
	return nil
}
