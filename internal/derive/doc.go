// Package derive compiles method signatures into query plans and binds
// runtime arguments to them.
//
// Compile parses the method name against the entity schema, numbers the
// operand slots of every criteria term left to right, assigns each value
// parameter to a slot and classifies the declared return shape. Bind then
// coerces one call's arguments into a realized Query or DeleteQuery.
//
// Both steps are pure. Cache memoizes Compile per signature and entity so
// repeated calls only bind.
package derive
