// Package transform rewrites silver details into gold records.
//
// Free text loses its markup, requirement blocks become canonical-key
// field maps through a KeyRegistry, and category and genre labels pass
// through a CorrectionTable.
package transform
