// Package textutil provides name and filename sanitization shared by the
// organizer, the archive builder and the storage key layout.
//
// Customer names come from free-form calendar titles and may carry
// parenthesised notes, emoji or punctuation; SanitizeCustomerName reduces
// them to the letters, digits and spaces that are safe in a folder name.
package textutil
