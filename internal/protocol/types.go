package protocol

import (
	"encoding/json"
	"fmt"
)

// BoundingBox is a face detection rectangle in source image coordinates.
// On the wire it is a four-element array [x1, y1, x2, y2].
type BoundingBox struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// Valid reports whether the box spans a positive area.
func (b BoundingBox) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// MarshalJSON encodes the box in its wire array form.
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON accepts the wire array form. null decodes to the zero box.
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = BoundingBox{}
		return nil
	}
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("bounding box: %w", err)
	}
	if len(coords) != 4 {
		return fmt.Errorf("bounding box: expected 4 coordinates, got %d", len(coords))
	}
	*b = BoundingBox{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}
	return nil
}

// Face is one detected face occurrence in one source image. Identity is the
// id, never the source path: two faces in the same photo are distinct.
type Face struct {
	ID        int64       `json:"id"`
	FilePath  string      `json:"file_path"`
	BBox      BoundingBox `json:"bbox"`
	Thumbnail string      `json:"thumbnail,omitempty"`
	// PersonID is absent for unclustered faces.
	PersonID *int64 `json:"person_id,omitempty"`
}

// Person is a named cluster of faces believed to depict one individual.
type Person struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail,omitempty"`
	FaceCount int    `json:"face_count,omitempty"`
}
