// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

package models

import "strings"

// Image is a catalog artwork reference.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// ArtistRef is the short artist object embedded in tracks.
type ArtistRef struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	URI          string            `json:"uri,omitempty"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
}

// AlbumRef is the short album object embedded in tracks.
type AlbumRef struct {
	ID           string            `json:"id,omitempty"`
	Name         string            `json:"name,omitempty"`
	Images       []Image           `json:"images,omitempty"`
	URI          string            `json:"uri,omitempty"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
}

// Entity is a catalog track or artist object with only the fields TrackGraph
// consumes. Tracks carry Artists and Album; artists carry Images and Genres.
type Entity struct {
	ID           string            `json:"id"`
	Name         string            `json:"name,omitempty"`
	URI          string            `json:"uri,omitempty"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
	Popularity   int               `json:"popularity,omitempty"`
	Artists      []ArtistRef       `json:"artists,omitempty"`
	Album        *AlbumRef         `json:"album,omitempty"`
	Images       []Image           `json:"images,omitempty"`
	Genres       []string          `json:"genres,omitempty"`
}

// HasAlbum reports whether a track entity carries album data.
func (e *Entity) HasAlbum() bool {
	return e != nil && e.Album != nil
}

// HasImages reports whether an artist entity carries artwork.
func (e *Entity) HasImages() bool {
	return e != nil && len(e.Images) > 0
}

// AlbumImageURL returns the first album image url of a track, or "".
func (e *Entity) AlbumImageURL() string {
	if e == nil || e.Album == nil || len(e.Album.Images) == 0 {
		return ""
	}
	return e.Album.Images[0].URL
}

// ImageURL returns the first image url of an artist, or "".
func (e *Entity) ImageURL() string {
	if e == nil || len(e.Images) == 0 {
		return ""
	}
	return e.Images[0].URL
}

// MatchArtist picks the embedded artist whose name equals name ignoring case,
// falling back to the first listed artist. ok is false when the track lists
// no artists.
func (e *Entity) MatchArtist(name string) (ArtistRef, bool) {
	if e == nil || len(e.Artists) == 0 {
		return ArtistRef{}, false
	}
	for _, a := range e.Artists {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return e.Artists[0], true
}

// TracksBatchResponse is returned by the tracks batch endpoint.
type TracksBatchResponse struct {
	Tracks []Entity `json:"tracks"`
}

// ArtistsBatchResponse is returned by the artists batch endpoint.
type ArtistsBatchResponse struct {
	Artists []Entity `json:"artists"`
}
