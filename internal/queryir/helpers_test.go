package queryir

import "github.com/roach88/repoquery/internal/ir"

func marshal(v any) (string, error) {
	b, err := ir.MarshalCanonical(v)
	return string(b), err
}
