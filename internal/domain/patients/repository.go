package patients

import (
	"context"
	"iter"
	"time"
)

// Fields es el contenido schemaless de un documento.
type Fields map[string]any

// Document es lo que devuelve el record store: id y registeredAt los asigna él.
type Document struct {
	ID           string
	RegisteredAt time.Time
	Fields       Fields
}

// Repository es la colección de documentos externa.
//
// Insert asigna id y registeredAt (no decreciente respecto del orden de inserción).
// Merge sólo pisa las keys provistas y devuelve ErrNotFound si el id no existe.
// Delete de un id inexistente no es error.
// List recorre un snapshot; cada llamada es un snapshot nuevo.
type Repository interface {
	Insert(ctx context.Context, fields Fields) (string, error)
	Get(ctx context.Context, id string) (Document, error)
	Merge(ctx context.Context, id string, fields Fields) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) iter.Seq2[Document, error]
}
