// Package method models repository method signatures and parses their names.
//
// A signature is a method name plus a parameter list and a declared return
// shape. The name is split into words by Split and matched against an
// entity schema by Parse:
//
//	name         := actionPrefix "All"? ("By" criteria)? ("OrderBy" orderSpec)?
//	actionPrefix := find | get | query | read | stream | search
//	              | count | exists | delete | remove
//	criteria     := term (("And" | "Or") term)*
//	term         := "Not"? fieldPath "Not"? operatorKeyword?
//	orderSpec    := property ("Asc" | "Desc")? ("And" property ("Asc" | "Desc")?)*
//
// Field paths resolve to the longest schema-matching run of words. An
// underscore is a hard segment boundary, so Salary_Currency can only mean
// salary.currency while SalaryCurrency may also match a top-level
// salaryCurrency field.
//
// The first And/Or of a criteria clause fixes the node kind; later
// combinators of either kind fold into the same flat node.
//
// Signatures are usually declared in YAML repository definitions, see
// LoadDefinitions.
package method
