package linkextract

import (
	"regexp"
	"strings"
)

const srcsetWS = "\t\n\f\r "

func isSrcsetWS(b byte) bool { return strings.IndexByte(srcsetWS, b) >= 0 }

var (
	validWidth   = regexp.MustCompile(`^[0-9]+$`)
	validHeight  = regexp.MustCompile(`^[0-9]+$`)
	validDensity = regexp.MustCompile(`^-?([0-9]+|[0-9]*\.[0-9]+)([eE][+-]?[0-9]+)?$`)
)

// parseSrcset implements the WhatWG "parse a srcset attribute" algorithm
// (spec §4.2, §8 property 8): split on whitespace/commas, track descriptor
// parens, validate each descriptor, and drop the whole candidate when any
// descriptor is malformed — matching the S6 test vectors in spec §8.
func parseSrcset(input string) []string {
	var urls []string
	pos := 0
	n := len(input)

	for pos < n {
		for pos < n && (isSrcsetWS(input[pos]) || input[pos] == ',') {
			pos++
		}
		if pos >= n {
			break
		}

		urlStart := pos
		for pos < n && !isSrcsetWS(input[pos]) {
			pos++
		}
		urlEnd := pos

		var descriptors []string

		if urlEnd > urlStart && input[urlEnd-1] == ',' {
			for urlEnd > urlStart && input[urlEnd-1] == ',' {
				urlEnd--
			}
		} else {
			for pos < n && isSrcsetWS(input[pos]) {
				pos++
			}

			descStart := pos
			descEnd := descStart
			const (
				stateInDescriptor = iota
				stateInParens
				stateAfterDescriptor
			)
			state := stateInDescriptor

			appendDescriptor := func() {
				if descEnd > descStart {
					descriptors = append(descriptors, input[descStart:descEnd])
				}
				descStart = pos
				descEnd = descStart
			}

		descriptorLoop:
			for {
				switch state {
				case stateInDescriptor:
					if pos >= n {
						appendDescriptor()
						break descriptorLoop
					}
					switch input[pos] {
					case '\t', '\n', '\f', '\r', ' ':
						appendDescriptor()
						descStart = pos + 1
						descEnd = descStart
						state = stateAfterDescriptor
					case ',':
						pos++
						appendDescriptor()
						break descriptorLoop
					case '(':
						descEnd++
						state = stateInParens
					default:
						descEnd++
					}
				case stateInParens:
					if pos >= n {
						appendDescriptor()
						break descriptorLoop
					}
					if input[pos] == ')' {
						descEnd++
						state = stateInDescriptor
					} else {
						descEnd++
					}
				case stateAfterDescriptor:
					if pos >= n {
						break descriptorLoop
					}
					if isSrcsetWS(input[pos]) {
						// stay
					} else {
						state = stateInDescriptor
						pos--
					}
				}
				pos++
			}
		}

		if urlStart == urlEnd {
			continue
		}

		if validDescriptors(descriptors) {
			urls = append(urls, input[urlStart:urlEnd])
		}
	}

	return urls
}

// validDescriptors reports whether every descriptor in the list is a
// recognised, well-formed width ("123w"), density ("1.5x") or legacy
// height ("123h") token. A single malformed descriptor invalidates the
// whole candidate per the WhatWG algorithm's error path.
func validDescriptors(descriptors []string) bool {
	sawWidth, sawDensity := false, false
	for _, d := range descriptors {
		if d == "" {
			return false
		}
		last := d[len(d)-1]
		value := d[:len(d)-1]
		switch last {
		case 'w':
			if sawWidth || sawDensity || !validWidth.MatchString(value) || value == "0" {
				return false
			}
			sawWidth = true
		case 'h':
			if !validHeight.MatchString(value) {
				return false
			}
		case 'x':
			if sawWidth || sawDensity || !validDensity.MatchString(value) {
				return false
			}
			sawDensity = true
		default:
			return false
		}
	}
	return true
}
