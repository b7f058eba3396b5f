package pipeline

import (
	"math"
	"sort"
	"strings"

	"github.com/gridworks/tabeng/core"
)

// groupOptions carries the configuration the grouping engine needs from
// the orchestrator.
type groupOptions struct {
	sortCfg *core.SortConfig
	columns []string
	types   map[string]core.ColumnType
	pcts    []core.PercentageColumn
}

// groupRows partitions rows by fields[level], builds one group row per
// partition with member count and per-column sums, then recurses into
// the remaining levels. At the terminal level the raw member rows are
// attached as children. Rows already tagged as group rows are skipped
// during partitioning so already-grouped data can never be re-grouped.
func groupRows(rows []core.Row, fields []string, level int, prefix []string, opts groupOptions) []core.Row {
	if len(fields) == 0 || level >= len(fields) {
		return rows
	}
	field := fields[level]

	// Partitions keep first-seen order. A nil group value collapses into
	// one partition keyed by a sentinel distinct from the string "null".
	type partition struct {
		key     string
		value   any
		members []core.Row
	}
	index := make(map[string]int)
	var parts []*partition
	for _, row := range rows {
		if row == nil || core.IsGroupRow(row) {
			continue
		}
		value := Get(row, field)
		key := core.GroupKeyNullSentinel
		if value != nil {
			key = core.Stringify(value)
		}
		i, ok := index[key]
		if !ok {
			i = len(parts)
			index[key] = i
			parts = append(parts, &partition{key: key, value: value})
		}
		parts[i].members = append(parts[i].members, row)
	}

	soft := hasSoftSort(opts.sortCfg)
	out := make([]core.Row, 0, len(parts))
	for _, part := range parts {
		members := part.members
		if soft {
			// Within-group order follows the soft sort independently of
			// the top-level sort stage.
			members = sortRowsSoft(members, opts.sortCfg)
		}
		segments := append(append([]string{}, prefix...), part.key)
		group := core.Row{
			core.KeyIsGroup:    true,
			core.KeyGroupField: field,
			core.KeyGroupValue: part.value,
			core.KeyGroupKey:   strings.Join(segments, core.GroupKeySeparator),
			core.KeyGroupLevel: level,
			core.KeyRowCount:   len(members),
		}
		for col, sum := range aggregateSums(members, opts) {
			group[col] = sum
		}
		if level+1 < len(fields) {
			group[core.KeyChildren] = groupRows(members, fields, level+1, segments, opts)
		} else {
			group[core.KeyChildren] = members
		}
		out = append(out, group)
	}

	if soft {
		// Groups order the same way individual values of the sort field
		// would: compare group values with the soft-sort comparator.
		vc := newValueComparator(opts.sortCfg.FieldType)
		desc := opts.sortCfg.Direction == core.SortDesc
		sort.SliceStable(out, func(i, j int) bool {
			c := vc.compare(out[i][core.KeyGroupValue], out[j][core.KeyGroupValue])
			if desc {
				c = -c
			}
			return c < 0
		})
	}
	return out
}

// aggregateSums sums every declared numeric column and every percentage
// column across the direct members only. Non-finite or non-numeric
// per-row contributions count as zero so one bad cell never poisons the
// aggregate.
func aggregateSums(members []core.Row, opts groupOptions) map[string]float64 {
	sums := make(map[string]float64, len(opts.pcts))
	for _, col := range opts.columns {
		if opts.types[col] != core.ColumnTypeNumber {
			continue
		}
		total := 0.0
		for _, row := range members {
			if n, ok := core.ToFloat64(Get(row, col)); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
				total += n
			}
		}
		sums[col] = total
	}
	for _, pc := range opts.pcts {
		total := 0.0
		for _, row := range members {
			if v, ok := PercentageValue(row, pc); ok {
				total += v
			}
		}
		sums[pc.ColumnName] = total
	}
	return sums
}
