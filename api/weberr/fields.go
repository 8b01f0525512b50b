package weberr

import "errors"

type fielder interface {
	Fields() map[string]any
}

// Fields collects the log fields attached anywhere in the error chain. Outer
// layers win when two layers set the same key.
func Fields(err error) (fields map[string]any, ok bool) {
	for err != nil {
		var fe fielder
		if !errors.As(err, &fe) {
			break
		}
		if fields == nil {
			fields = make(map[string]any)
		}
		for k, v := range fe.Fields() {
			if _, set := fields[k]; !set {
				fields[k] = v
			}
		}
		ok = true

		u, isUnwrapper := fe.(interface{ Unwrap() error })
		if !isUnwrapper {
			break
		}
		err = u.Unwrap()
	}
	return fields, ok
}

type fieldsError struct {
	error
	fields map[string]any
}

func (e *fieldsError) Fields() map[string]any { return e.fields }

func (e *fieldsError) Unwrap() error { return e.error }
