package report

import "github.com/JakeFAU/realtime-site-auditor/internal/audit"

// Every read of the raw audit result goes through one of these helpers so
// that each field's default lives in a single place:
//
//	numeric     numericValue                  nil
//	score       score                         nil
//	passed      score == 1                    false
//	items       details.items                 []
//	itemCount   len(details.items)            0
//	itemURLs    details.items[].url           nil
//	savingsKB   overallSavingsBytes / 1024    nil
//	chains      details.chains                {}

const bytesPerKB = 1024

func numeric(raw audit.RawAuditResult, id string) *float64 {
	rec, ok := raw.Lookup(id)
	if !ok {
		return nil
	}
	return copyFloat(rec.NumericValue)
}

func score(raw audit.RawAuditResult, id string) *float64 {
	rec, ok := raw.Lookup(id)
	if !ok {
		return nil
	}
	return copyFloat(rec.Score)
}

func passed(raw audit.RawAuditResult, id string) bool {
	rec, ok := raw.Lookup(id)
	return ok && rec.Score != nil && *rec.Score == 1
}

func items(raw audit.RawAuditResult, id string) []audit.Item {
	rec, ok := raw.Lookup(id)
	if !ok || rec.Details == nil {
		return []audit.Item{}
	}
	out := make([]audit.Item, 0, len(rec.Details.Items))
	for _, it := range rec.Details.Items {
		out = append(out, copyItem(it))
	}
	return out
}

func itemCount(raw audit.RawAuditResult, id string) int {
	rec, ok := raw.Lookup(id)
	if !ok || rec.Details == nil {
		return 0
	}
	return len(rec.Details.Items)
}

func itemURLs(raw audit.RawAuditResult, id string) []string {
	rec, ok := raw.Lookup(id)
	if !ok || rec.Details == nil {
		return nil
	}
	urls := make([]string, 0, len(rec.Details.Items))
	for _, it := range rec.Details.Items {
		if u, ok := it["url"].(string); ok {
			urls = append(urls, u)
		}
	}
	return urls
}

func savingsKB(raw audit.RawAuditResult, id string) *float64 {
	rec, ok := raw.Lookup(id)
	if !ok || rec.Details == nil || rec.Details.OverallSavingsBytes == nil {
		return nil
	}
	kb := *rec.Details.OverallSavingsBytes / bytesPerKB
	return &kb
}

func chains(raw audit.RawAuditResult, id string) map[string]any {
	rec, ok := raw.Lookup(id)
	if !ok || rec.Details == nil || rec.Details.Chains == nil {
		return map[string]any{}
	}
	return copyMap(rec.Details.Chains)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyItem(it audit.Item) audit.Item {
	if it == nil {
		return nil
	}
	return audit.Item(copyMap(it))
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case audit.Item:
		return copyItem(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
