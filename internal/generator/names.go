package generator

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/uma-arai/hotelgen-batch/internal/model"
)

// streetNumber は1〜9999の番地を返します
// 桁数ごとに等確率なので、短い番地が多めに出ます
func streetNumber(r *rand.Rand) int {
	switch r.IntN(3) {
	case 0:
		return 1 + r.IntN(9)
	case 1:
		return 10 + r.IntN(90)
	default:
		return 100 + r.IntN(9900)
	}
}

// usPhone は NXX-NXX-XXXX 形式の電話番号を返します
func usPhone(r *rand.Rand) string {
	return fmt.Sprintf("%d-%d-%04d", 200+r.IntN(800), 200+r.IntN(800), r.IntN(10000))
}

func street(pools Pools, r *rand.Rand) string {
	return fmt.Sprintf("%d %s", streetNumber(r), pools.Pick(KindStreetName, r))
}

// slug はドメイン名に使える英小文字と数字だけを残します
func slug(s string) string {
	return strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			return c
		case c >= 'A' && c <= 'Z':
			return c + ('a' - 'A')
		default:
			return -1
		}
	}, s)
}

// propertyIdentity は施設名とドメイン、メールアドレス、Webサイトを生成します
func propertyIdentity(pools Pools, r *rand.Rand, pt model.PropertyType, city string) (name, email, website string) {
	adj := pools.Pick(KindAdjective, r)
	noun := pools.Pick(KindNoun, r)
	tmpl := pools.Pick(KindPropertyNameTemplate, r)

	name = strings.NewReplacer(
		"{adj}", adj,
		"{noun}", noun,
		"{type}", pt.String(),
		"{loc}", city,
	).Replace(tmpl)

	domain := slug(name) + pools.Pick(KindDomainTLD, r)
	email = pools.Pick(KindPropertyEmailUser, r) + "@" + domain

	var sb strings.Builder
	sb.WriteString("https://")
	if r.Float64() < 0.25 {
		sb.WriteString("www.")
	}
	sb.WriteString(domain)
	if r.Float64() < 0.1 {
		sb.WriteString("/")
		sb.WriteString(pools.Pick(KindURLStem, r))
	}
	website = sb.String()
	return name, email, website
}

// customerEmail は氏名からメールアドレスを生成します
func customerEmail(pools Pools, r *rand.Rand, first, last string) string {
	firstSlug, lastSlug := slug(first), slug(last)
	if firstSlug == "" {
		firstSlug = "guest"
	}
	if lastSlug == "" {
		lastSlug = "guest"
	}
	tmpl := pools.Pick(KindCustomerEmailTemplate, r)
	return strings.NewReplacer(
		"{fname}", firstSlug,
		"{lname}", lastSlug,
		"{f_initial}", firstSlug[:1],
		"{l_initial}", lastSlug[:1],
		"{year}", fmt.Sprintf("%02d", r.IntN(100)),
		"{domain}", pools.Pick(KindCustomerEmailDomain, r),
	).Replace(tmpl)
}

// PaymentMethod は "Visa xxxx-1234" 形式の支払手段を返します
func PaymentMethod(pools Pools, r *rand.Rand) string {
	return fmt.Sprintf("%s xxxx-%04d", pools.Pick(KindCardBrand, r), 10+r.IntN(9990))
}
