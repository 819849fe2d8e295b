// Package service contains the computations the API exposes: letter
// counting, placeholder text, the CKAN client and the dataset age updater.
//
// Everything here is safe to call from request handlers and from background
// workers alike. Functions take a context where they perform I/O and report
// downstream failures as ErrUpstream so the API layer can map them to 502.
package service
