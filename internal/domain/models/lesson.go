package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LessonTypeAcademic marks catalog lessons promoted from the academic core.
const LessonTypeAcademic = "academic"

// Lesson is an entry of the public lesson catalog. The academic core only
// ever creates these through the export pipeline.
type Lesson struct {
	ID            primitive.ObjectID   `bson:"_id" json:"id"`
	Title         string               `bson:"title" json:"title"`
	Resume        string               `bson:"resume" json:"resume"`
	References    string               `bson:"references" json:"references"`
	Justification string               `bson:"justification" json:"justification"`
	Level         []string             `bson:"level" json:"level"`
	State         string               `bson:"state" json:"state"`
	Type          string               `bson:"type" json:"type"`
	Author        primitive.ObjectID   `bson:"author" json:"author"`
	Leader        primitive.ObjectID   `bson:"leader" json:"leader"`
	Expert        primitive.ObjectID   `bson:"expert" json:"expert"`
	KnowledgeArea []primitive.ObjectID `bson:"knowledge_area" json:"knowledge_area"`
	Tags          []string             `bson:"tags" json:"tags"`
	Files         []CatalogFile        `bson:"files" json:"files"`

	AcademicLessonID primitive.ObjectID `bson:"academicLessonId" json:"academicLessonId"`

	Visible  bool `bson:"visible" json:"visible"`
	Accepted bool `bson:"accepted" json:"accepted"`
	Score    int  `bson:"score" json:"score"`
	Views    int  `bson:"views" json:"views"`
	Version  int  `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// CatalogFile is the catalog's file shape.
type CatalogFile struct {
	FileName     string             `bson:"file_name" json:"file_name"`
	OriginalName string             `bson:"original_name" json:"original_name"`
	FilePath     string             `bson:"file_path" json:"file_path"`
	Size         int64              `bson:"size" json:"size"`
	MimeType     string             `bson:"mime_type" json:"mime_type"`
	UploadedBy   primitive.ObjectID `bson:"uploaded_by" json:"uploaded_by"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
