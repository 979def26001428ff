package profile

// FieldKind categorizes a column in the profiles table
type FieldKind int

const (
	// FieldText is a plain value column
	FieldText FieldKind = iota
	// FieldIdentity is the unique key column, never altered by reconciliation
	FieldIdentity
	// FieldLink is a link-bearing column written as a formula placeholder
	FieldLink
	// FieldDate is a column holding a relative time expression to resolve
	FieldDate
	// FieldCapture is the scrape timestamp column
	FieldCapture
)

// Field describes one column of the fixed record schema
type Field struct {
	Name string
	Kind FieldKind
}

// Field names as they appear in the profiles table header
const (
	FieldImage        = "IMAGE"
	FieldNickname     = "NICK NAME"
	FieldTags         = "TAGS"
	FieldLastPost     = "LAST POST"
	FieldLastPostTime = "LAST POST TIME"
	FieldFriend       = "FRIEND"
	FieldCity         = "CITY"
	FieldGender       = "GENDER"
	FieldMarried      = "MARRIED"
	FieldAge          = "AGE"
	FieldJoined       = "JOINED"
	FieldFollowers    = "FOLLOWERS"
	FieldStatus       = "STATUS"
	FieldPosts        = "POSTS"
	FieldProfileLink  = "PROFILE LINK"
	FieldIntro        = "INTRO"
	FieldSource       = "SOURCE"
	FieldScrapedAt    = "DATETIME SCRAP"
)

// Schema is the fixed ordered column set of the profiles table. Order
// matters: row tuples and the table header follow it exactly.
var Schema = []Field{
	{FieldImage, FieldLink},
	{FieldNickname, FieldIdentity},
	{FieldTags, FieldText},
	{FieldLastPost, FieldLink},
	{FieldLastPostTime, FieldDate},
	{FieldFriend, FieldText},
	{FieldCity, FieldText},
	{FieldGender, FieldText},
	{FieldMarried, FieldText},
	{FieldAge, FieldText},
	{FieldJoined, FieldDate},
	{FieldFollowers, FieldText},
	{FieldStatus, FieldText},
	{FieldPosts, FieldText},
	{FieldProfileLink, FieldLink},
	{FieldIntro, FieldText},
	{FieldSource, FieldText},
	{FieldScrapedAt, FieldCapture},
}

var fieldIndex = buildFieldIndex()

func buildFieldIndex() map[string]int {
	idx := make(map[string]int, len(Schema))
	for i, f := range Schema {
		idx[f.Name] = i
	}
	return idx
}

// FieldCount returns the number of columns in the schema
func FieldCount() int {
	return len(Schema)
}

// FieldNames returns the ordered column names (the table header row)
func FieldNames() []string {
	names := make([]string, len(Schema))
	for i, f := range Schema {
		names[i] = f.Name
	}
	return names
}

// IndexOf returns the zero-based column index of a field name
func IndexOf(name string) (int, bool) {
	i, ok := fieldIndex[name]
	return i, ok
}

// LinkFieldNames returns the names of the link-bearing columns in order
func LinkFieldNames() []string {
	var names []string
	for _, f := range Schema {
		if f.Kind == FieldLink {
			names = append(names, f.Name)
		}
	}
	return names
}

// ColumnLetter converts a zero-based column index to its A1 letter
func ColumnLetter(colIdx int) string {
	result := ""
	colIdx++
	for colIdx > 0 {
		colIdx--
		result = string(rune('A'+colIdx%26)) + result
		colIdx /= 26
	}
	return result
}
