// Package pairing shows pairing secrets to the operator: a QR code rendered
// in the terminal (optionally also saved as a PNG) or a linking code.
package pairing
