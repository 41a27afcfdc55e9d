// Package repository dispatches derived query methods.
//
// A Repository holds an explicit table of method signatures, declared
// directly with Register or flattened from fragments with Compose. Invoke
// compiles a method once through the plan cache, binds the call's
// arguments, runs the resulting query on a Template and shapes the rows
// into the declared return type:
//
//	repo, err := repository.New[Person](entity, store)
//	err = repo.Register(method.Signature{
//		Name:    "findByAgeGreaterThanOrderByName",
//		Params:  []method.Param{{Name: "age"}},
//		Returns: "List[Person]",
//	})
//	people, err := repository.As[[]Person](repo.Invoke(ctx, "findByAgeGreaterThanOrderByName", 30))
//
// Argument count mismatches are reported before the template is touched.
package repository
