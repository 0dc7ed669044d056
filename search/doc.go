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


// Package search provides hybrid semantic and structured search over the
// gold dataset.
//
// A Searcher embeds the query once, then asks the embedding store for the
// nearest vectors whose gold records pass the price range and the category
// and genre membership filters. Results are ordered by ascending distance
// and capped at the filter limit, DefaultLimit when unset.
package search
