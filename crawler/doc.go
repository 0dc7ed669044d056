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


// Package crawler fetches the catalog listing and per-item detail records.
//
// Client.FetchDetail makes exactly one outbound call and classifies the
// answer as Found, NotFound or Transient:
//
//   - a non-2xx status, timeout, or undecodable payload is Transient
//   - a 2xx whose entry is missing or has "success": false is NotFound
//
// Retrier layers a fixed-delay RetryPolicy on top. NotFound is returned
// immediately; exhausting the policy yields a placeholder detail instead
// of an error so one bad identifier never aborts a batch.
//
// Calls can be routed through an authenticated forward proxy, throttled
// with a shared token bucket, and guarded by a circuit breaker.
package crawler
