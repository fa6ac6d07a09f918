package plan

// The following documentation is used to describe how a select is mapped to
// the phases executed by package exec.
//
// After the plan been generated, it will contain up to 5 phases, which will
// be executed sequentially. Every phase reads the artifact written by the
// phase before it and writes a new one, the engine only holds on to the
// current artifact.
//
// 1) Join
//    Only when the query has a join clause. Nested loop over chunk pairs of
//    the two tables, the output has every column of both tables named as
//    table.column. Predicates qualified with one of the table names are
//    evaluated while reading that table.
//
// 2) TableScan
//    Project+Filter. Reads the base table, or the join artifact, chunk by
//    chunk, keeps the records matching every remaining predicate and projects
//    the columns the later phases need.
//
// 3) GroupBy + Agg
//    Only when the query names a group by clause. Records are grouped by the
//    tuple of the key columns, each aggregate is folded per group. Output is
//    the key columns in sorted order followed by the projected columns, with
//    aggregates named as func(column).
//
// 4) Sort
//    Only when the query names an order by clause. Sorting is textual and
//    stable, either fully in memory or as an external k-way merge of per
//    chunk sorted spill files.
//
// 5) Output
//    The last artifact is the result of the query.
