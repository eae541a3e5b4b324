// Package ledger reads and updates the studio's booking spreadsheet.
//
// The spreadsheet has one sheet per tier. Basic rows use columns
// A:shoot date, B:customer, C:phone, D:review done, E:original sent,
// F:note. Premium rows use A:shoot date, B:customer, C:phone, D:address,
// E:first delivery, F:retouch requested, G:retouch done, H:second delivery,
// I:final confirm, J:note. Data starts at row 2.
//
// Two backends implement Ledger: the Google Sheets v4 REST API and a local
// .xlsx workbook edited with excelize, for studios that keep the ledger on
// the NAS.
package ledger
