package ir

import (
	"fmt"
	"regexp"
)

// Validation error codes (E100-E199)
const (
	// SchemaDef errors (E101-E109)
	ErrNoTables          = "E101" // schema has no tables
	ErrEmptyName         = "E102" // table or column name is empty
	ErrDuplicateName     = "E103" // duplicate table or column name
	ErrNoColumns         = "E104" // table has no columns
	ErrInvalidColumnType = "E105" // type string not in ValidTypes
	ErrInvalidPrimaryKey = "E106" // primary key references unknown column
	ErrInvalidForeignKey = "E107" // foreign key endpoint missing

	// CheckDef errors (E110-E119)
	ErrInvalidCheckName = "E110" // check name fails namePattern
	ErrEmptyQuery       = "E111" // candidate or reference missing
	ErrInvalidExpect    = "E112" // expect not a verdict string
	ErrInvalidBound     = "E113" // negative bound
)

// namePattern constrains check names to portable identifiers, so they
// can appear in file names and report columns unquoted.
var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidationError represents a descriptor validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the descriptor against schema rules.
// Returns all errors found (does not fail-fast).
func (s *SchemaDef) Validate() []ValidationError {
	var errs []ValidationError

	if len(s.Tables) == 0 {
		errs = append(errs, ValidationError{
			Field:   "tables",
			Message: "at least one table is required",
			Code:    ErrNoTables,
		})
	}

	seenTables := make(map[string]bool)
	for i, t := range s.Tables {
		field := fmt.Sprintf("tables[%d]", i)
		if t.Name == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "table name is empty",
				Code:    ErrEmptyName,
			})
		} else {
			field = fmt.Sprintf("tables.%s", t.Name)
			if seenTables[t.Name] {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("duplicate table name: %q", t.Name),
					Code:    ErrDuplicateName,
				})
			}
			seenTables[t.Name] = true
		}
		errs = append(errs, t.validate(field, s)...)
	}

	return errs
}

func (t *TableDef) validate(field string, s *SchemaDef) []ValidationError {
	var errs []ValidationError

	if len(t.Columns) == 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".columns",
			Message: "at least one column is required",
			Code:    ErrNoColumns,
		})
	}

	seenCols := make(map[string]bool)
	for i, c := range t.Columns {
		cf := fmt.Sprintf("%s.columns[%d]", field, i)
		if c.Name == "" {
			errs = append(errs, ValidationError{
				Field:   cf + ".name",
				Message: "column name is empty",
				Code:    ErrEmptyName,
			})
		} else {
			cf = fmt.Sprintf("%s.columns.%s", field, c.Name)
			if seenCols[c.Name] {
				errs = append(errs, ValidationError{
					Field:   cf,
					Message: fmt.Sprintf("duplicate column name: %q", c.Name),
					Code:    ErrDuplicateName,
				})
			}
			seenCols[c.Name] = true
		}
		if ValidTypes[c.Type] == "" {
			errs = append(errs, ValidationError{
				Field:   cf + ".type",
				Message: fmt.Sprintf("invalid type %q, must be one of: int, real, text, bool", c.Type),
				Code:    ErrInvalidColumnType,
			})
		}
	}

	for i, pk := range t.PrimaryKey {
		if !seenCols[pk] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.primary_key[%d]", field, i),
				Message: fmt.Sprintf("primary key column %q not found", pk),
				Code:    ErrInvalidPrimaryKey,
			})
		}
	}

	for i, fk := range t.ForeignKeys {
		ff := fmt.Sprintf("%s.foreign_keys[%d]", field, i)
		if !seenCols[fk.Column] {
			errs = append(errs, ValidationError{
				Field:   ff + ".column",
				Message: fmt.Sprintf("foreign key source column %q not found", fk.Column),
				Code:    ErrInvalidForeignKey,
			})
		}
		ref := s.Table(fk.RefTable)
		if ref == nil {
			errs = append(errs, ValidationError{
				Field:   ff + ".ref_table",
				Message: fmt.Sprintf("foreign key target table %q not found", fk.RefTable),
				Code:    ErrInvalidForeignKey,
			})
		} else if ref.Column(fk.RefColumn) == nil {
			errs = append(errs, ValidationError{
				Field:   ff + ".ref_column",
				Message: fmt.Sprintf("foreign key target column %q not found in %q", fk.RefColumn, fk.RefTable),
				Code:    ErrInvalidForeignKey,
			})
		}
	}

	return errs
}

// Validate checks a check definition against schema rules.
// Returns all errors found (does not fail-fast).
func (c *CheckDef) Validate() []ValidationError {
	var errs []ValidationError

	if !namePattern.MatchString(c.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("check name %q must match %s", c.Name, namePattern),
			Code:    ErrInvalidCheckName,
		})
	}
	if c.Candidate == "" {
		errs = append(errs, ValidationError{
			Field:   "candidate",
			Message: "candidate query is required",
			Code:    ErrEmptyQuery,
		})
	}
	if c.Reference == "" {
		errs = append(errs, ValidationError{
			Field:   "reference",
			Message: "reference query is required",
			Code:    ErrEmptyQuery,
		})
	}
	if c.Expect != "" && !ValidVerdicts[c.Expect] {
		errs = append(errs, ValidationError{
			Field:   "expect",
			Message: fmt.Sprintf("invalid verdict %q, must be one of: equivalent, not_equivalent, unknown", c.Expect),
			Code:    ErrInvalidExpect,
		})
	}
	if c.Bound < 0 {
		errs = append(errs, ValidationError{
			Field:   "bound",
			Message: "bound must be non-negative",
			Code:    ErrInvalidBound,
		})
	}

	return errs
}
