package query

// FilterKind discriminates the structured filter terms.
type FilterKind int

const (
	FilterExtension FilterKind = iota
	FilterType
	FilterTypeMacro
	FilterSize
	FilterFile
	FilterFolder
	FilterParent
	FilterInFolder
	FilterNoSubfolders
	FilterContent
	FilterTag
	FilterDateModified
	FilterDateCreated
)

// Filter is the payload of a structured (prefix:argument) term. Only
// the fields relevant to Kind are populated; the rest are zero.
type Filter struct {
	Kind FilterKind

	Extensions []string // FilterExtension: normalized, lowercased, no leading dot

	Type TypeFilterTarget // FilterType, FilterTypeMacro

	// MacroArgument carries a further name-matching pattern kept after
	// "audio:", "video:", "doc:" or "exe:" when a non-empty argument
	// follows the colon.
	MacroArgument string
	HasMacroArg   bool

	// Argument is the optional pattern that follows "file:" or
	// "folder:" when present.
	Argument    string
	HasArgument bool

	Size SizePredicate // FilterSize

	Path string // FilterParent, FilterInFolder, FilterNoSubfolders

	Needle string // FilterContent

	Tags []string // FilterTag

	Date DatePredicate // FilterDateModified, FilterDateCreated
}
