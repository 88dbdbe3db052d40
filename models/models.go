package models

import (
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
)

// Movie is a single catalog item as returned by the metadata service.
// Values are never mutated after decoding; a refetch replaces them wholesale.
type Movie struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
	GenreIDs     []int   `json:"genre_ids"`
	Adult        bool    `json:"adult"`
}

// Year returns the release year, or 0 when the upstream date is empty or malformed.
func (m Movie) Year() int {
	t, err := time.Parse("2006-01-02", m.ReleaseDate)
	if err != nil {
		return 0
	}
	return t.Year()
}

// MatchPercent maps the 0-10 rating onto the "% Match" badge.
func (m Movie) MatchPercent() int {
	return int(math.Round(m.VoteAverage * 10))
}

// Certification is the audience label shown next to the year.
func (m Movie) Certification() string {
	if m.Adult {
		return "18+"
	}
	return "13+"
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetails extends Movie with the fields only the details endpoint returns.
type MovieDetails struct {
	Movie
	Genres  []Genre `json:"genres"`
	Runtime int     `json:"runtime"`
	Tagline string  `json:"tagline"`
}

// RuntimeLabel formats the runtime as "2h 16m".
func (d MovieDetails) RuntimeLabel() string {
	if d.Runtime <= 0 {
		return ""
	}
	hours, minutes := d.Runtime/60, d.Runtime%60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// User is a registered profile. Passwords are never stored.
type User struct {
	gorm.Model
	Name        string
	Email       string `gorm:"uniqueIndex"`
	PhoneNumber string
}
