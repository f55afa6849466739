package storetest

import (
	"bytes"
	"reflect"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// matches supports equality on top-level fields plus $in, $ne, $exists and the range operators.
// A nil filter value matches both null and a missing field.
func matches(doc, filter bson.M) bool {
	for field, want := range filter {
		have, present := doc[field]
		if ops, ok := asM(want); ok && isOperatorDoc(ops) {
			if !matchOperators(have, present, ops) {
				return false
			}
			continue
		}
		if want == nil {
			if present && have != nil {
				return false
			}
			continue
		}
		if !present || !equal(have, want) {
			return false
		}
	}
	return true
}

func isOperatorDoc(m bson.M) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func matchOperators(have any, present bool, ops bson.M) bool {
	for op, arg := range ops {
		switch op {
		case "$in":
			found := false
			for _, v := range asSlice(arg) {
				if (v == nil && have == nil) || (present && equal(have, v)) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case "$ne":
			if present && equal(have, arg) {
				return false
			}
			if arg == nil && present && have == nil {
				return false
			}
		case "$exists":
			want, _ := arg.(bool)
			if present != want {
				return false
			}
		case "$gt", "$gte", "$lt", "$lte":
			if !present || !inRange(op, have, arg) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// inRange only compares values of the same type, as the store does.
func inRange(op string, have, bound any) bool {
	if have == nil || bound == nil || typeRank(have) != typeRank(bound) {
		return false
	}
	c := compare(have, bound)
	switch op {
	case "$gt":
		return c > 0
	case "$gte":
		return c >= 0
	case "$lt":
		return c < 0
	default:
		return c <= 0
	}
}

func asM(v any) (bson.M, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]any:
		return bson.M(t), true
	case bson.D:
		return t.Map(), true
	default:
		return nil, false
	}
}

func asSlice(v any) []any {
	switch t := v.(type) {
	case bson.A:
		return t
	case []any:
		return t
	default:
		return nil
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	if am, ok := asM(a); ok {
		bm, ok := asM(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, v := range am {
			w, ok := bm[k]
			if !ok || !equal(v, w) {
				return false
			}
		}
		return true
	}
	if as := asSlice(a); as != nil {
		bs := asSlice(b)
		if bs == nil || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !equal(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// typeRank follows the store's cross-type sort order.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int32, int64, int, float64:
		return 1
	case string:
		return 2
	case bson.M, bson.D, map[string]any:
		return 3
	case bson.A, []any:
		return 4
	case primitive.ObjectID:
		return 6
	case bool:
		return 7
	case primitive.DateTime:
		return 8
	default:
		return 9
	}
}

func compare(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case primitive.ObjectID:
		y := b.(primitive.ObjectID)
		return bytes.Compare(x[:], y[:])
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case primitive.DateTime:
		y := b.(primitive.DateTime)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	if x, ok := number(a); ok {
		y, _ := number(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// sortDocs orders docs by the sort spec; ties keep insertion order.
func sortDocs(docs []bson.M, spec bson.D) {
	if len(spec) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, e := range spec {
			dir, _ := number(e.Value)
			c := compare(docs[i][e.Key], docs[j][e.Key])
			if c == 0 {
				continue
			}
			if dir < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
