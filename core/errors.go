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

import "errors"

// Domain validation errors
var (
	// ErrInvalidAppDetail indicates an AppDetail failed validation.
	ErrInvalidAppDetail = errors.New("invalid app detail")

	// ErrInvalidGame indicates a Game failed validation.
	ErrInvalidGame = errors.New("invalid game")

	// ErrInvalidFilter indicates a SearchFilter failed validation.
	ErrInvalidFilter = errors.New("invalid search filter")

	// ErrInvalidAppID indicates a non-positive identifier.
	ErrInvalidAppID = errors.New("app id must be positive")

	// ErrEmptyName indicates the Name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrNegativePrice indicates a price bound below zero.
	ErrNegativePrice = errors.New("price cannot be negative")

	// ErrInvertedPriceRange indicates PriceMin > PriceMax.
	ErrInvertedPriceRange = errors.New("price range is inverted")
)
