// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package stream

// ObjectSink is a pipeline stage that accepts a stream of items of type T.
type ObjectSink[T any] interface {
	// Open prepares the stage to receive items.
	Open() error

	// Item processes a single item. Ownership of the item passes to the
	// stage.
	Item(item T) error

	// Close finalizes the stage.
	Close() error
}

// SeparatorSink is an ObjectSink that additionally accepts separators of
// type S. A separator marks a logical boundary between the items sent before
// it and the items sent after it.
type SeparatorSink[T, S any] interface {
	ObjectSink[T]

	// Separator processes a single out of band marker.
	Separator(sep S) error
}
