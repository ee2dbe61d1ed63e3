/*
romanize.go - Canonical match keys for identity reconciliation

PURPOSE:
  Social-security rows carry only a name and a region; agent records carry
  an internal numeric ID. The link between the two is a canonical match key:
  a tone-insensitive Latin romanization of the name combined with a
  normalized region. Key construction is a pure function so the join is a
  single hash lookup, never a per-row scan.

ROMANIZATION:
  Han characters are converted to pinyin (lazy style, no tones, first
  reading for heteronyms). Latin characters are decomposed, stripped of
  combining marks and lowercased. Whitespace and punctuation are dropped.
  Matching beyond this normalization is exact: there is no scored fuzzy
  similarity, because a near-miss that attributes cost to the wrong agent
  is worse than an unmatched row.

REGIONS:
  Region strings in the billing data use city names and single-character
  abbreviations. The alias table folds those into their province so that
  "苏州" and "江苏" compare equal.
*/
package analytics

import (
	"sort"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var pinyinArgs = pinyin.NewArgs()

// stripMarks decomposes and removes combining marks: "Ménard" -> "Menard".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// RomanizeName converts a name into its canonical romanized form: lowercase
// Latin letters and digits only, Han characters replaced by their pinyin.
// Returns "" for names with no usable characters.
func RomanizeName(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range folded {
		if py := pinyin.SinglePinyin(r, pinyinArgs); len(py) > 0 {
			b.WriteString(py[0])
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// regionAliases maps a canonical region to the variants seen in billing
// names: the region itself, its short form, and major cities.
var regionAliases = map[string][]string{
	"北京": {"北京", "京"},
	"上海": {"上海", "沪"},
	"天津": {"天津", "津"},
	"重庆": {"重庆", "渝"},
	"深圳": {"深圳", "深"},
	"广州": {"广州", "穗"},
	"江苏": {"江苏", "苏", "南京", "苏州", "无锡", "常州", "镇江", "扬州"},
	"浙江": {"浙江", "浙", "杭州", "宁波", "温州", "绍兴"},
	"广东": {"广东", "粤", "东莞", "佛山", "珠海", "中山"},
	"山东": {"山东", "鲁", "济南", "青岛", "烟台"},
	"四川": {"四川", "川", "成都"},
	"湖北": {"湖北", "鄂", "武汉"},
	"湖南": {"湖南", "湘", "长沙"},
	"河南": {"河南", "豫", "郑州"},
	"河北": {"河北", "冀", "石家庄"},
	"福建": {"福建", "闽", "福州", "厦门"},
	"安徽": {"安徽", "皖", "合肥"},
	"辽宁": {"辽宁", "辽", "沈阳", "大连"},
	"陕西": {"陕西", "陕", "西安"},
}

type regionAlias struct {
	alias     string
	canonical string
}

// orderedAliases is the alias table flattened into a fixed scan order:
// longest alias first, ties broken lexically. Longest-first means "南京"
// resolves through its own entry rather than through the single-character
// "京" of another province, and the fixed order keeps NormalizeRegion a
// pure function of its input.
var orderedAliases = func() []regionAlias {
	var out []regionAlias
	for region, aliases := range regionAliases {
		for _, a := range aliases {
			out = append(out, regionAlias{alias: a, canonical: region})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].alias) != len(out[j].alias) {
			return len(out[i].alias) > len(out[j].alias)
		}
		return out[i].alias < out[j].alias
	})
	return out
}()

// NormalizeRegion folds a region string onto its canonical form. Strings
// containing a known alias resolve to that alias's region, longest alias
// winning; anything else is trimmed and lowercased as-is.
func NormalizeRegion(region string) string {
	region = strings.TrimSpace(region)
	if region == "" {
		return ""
	}
	for _, ra := range orderedAliases {
		if strings.Contains(region, ra.alias) {
			return ra.canonical
		}
	}
	return strings.ToLower(region)
}

// MatchKey builds the canonical reconciliation key for a name + region pair.
// Returns "" when the name romanizes to nothing; such rows can never match.
func MatchKey(name, region string) string {
	n := RomanizeName(name)
	if n == "" {
		return ""
	}
	return n + "|" + NormalizeRegion(region)
}
