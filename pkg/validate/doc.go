// Package validate runs struct-tag validation on forms before they are sent
// to the backend and turns validator failures into short, field-keyed
// messages suitable for a terminal or a form.
package validate
