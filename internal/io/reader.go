package io

import (
	"bufio"
	"os"
	"strings"
)

// ReadLocations reads one entry per line, skipping blanks and # comments
func ReadLocations(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var locations []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			locations = append(locations, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return locations, nil
}

// ReadLocationsOr returns the file's entries, or fallback when it cannot be read or is empty
func ReadLocationsOr(filename string, fallback []string) ([]string, error) {
	if filename == "" {
		return fallback, nil
	}
	locations, err := ReadLocations(filename)
	if err != nil {
		return fallback, err
	}
	if len(locations) == 0 {
		return fallback, nil
	}
	return locations, nil
}

// WriteLocations writes entries one per line in the format ReadLocations reads,
// with each header line as a # comment
func WriteLocations(filename string, header []string, locations []string) error {
	var b strings.Builder
	for _, line := range header {
		b.WriteString("# " + line + "\n")
	}
	for _, loc := range locations {
		b.WriteString(loc + "\n")
	}
	return writeFileAtomic(filename, []byte(b.String()))
}
