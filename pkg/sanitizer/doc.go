// Package sanitizer normalizes free-text input before validation and storage.
// Admin-entered reason and notes fields arrive with stray whitespace and
// control characters; sanitization keeps stored blocks and tours comparable.
package sanitizer
