// Package language normalizes the source-language hint sent to the
// speech-to-text service and renders it for operators.
package language
