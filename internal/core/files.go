package core

import "olh/internal/domain"

type Node interface {
	Path() string
	Name() string
}

type File struct {
	path string
	name string
	dir  *Dir
}

type Dir struct {
	path     string
	name     string
	children []Node
	parent   *Dir
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Name() string {
	return f.name
}

// Uploadable reports whether the server accepts this file type.
func (f *File) Uploadable() bool {
	return domain.IsAllowedFile(f.name)
}

func (d *Dir) Path() string {
	return d.path
}

func (d *Dir) Name() string {
	return d.name
}

func (d *Dir) Children() []Node {
	return d.children
}
