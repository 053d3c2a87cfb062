package core

// CategoryOther is the catch-all label. It is also the name of the merged
// long-tail bucket in chart output.
const CategoryOther = "其他"

// Categories is the closed, ordered vocabulary offered to the model.
var Categories = []string{
	"餐饮", "交通", "衣服", "购物", "教育", "娱乐", "生活", "运动", "旅行", "住房", "保险",
	"服务", "公益", "医疗", "宠物", "转账", "人情", "饮品", "水果", "日用", "零食", CategoryOther,
}

// Icon identifies the glyph a client renders next to a category.
type Icon string

const (
	IconFood          Icon = "food"
	IconTransport     Icon = "transport"
	IconEducation     Icon = "education"
	IconEntertainment Icon = "entertainment"
	IconLife          Icon = "life"
	IconSports        Icon = "sports"
	IconTravel        Icon = "travel"
	IconHousing       Icon = "housing"
	IconInsurance     Icon = "insurance"
	IconService       Icon = "service"
	IconCharity       Icon = "charity"
	IconMedical       Icon = "medical"
	IconPet           Icon = "pet"
	IconTransfer      Icon = "transfer"
	IconSocial        Icon = "social"
	IconDaily         Icon = "daily"
	IconOther         Icon = "other"
)

var categoryIcons = map[string]Icon{
	"餐饮": IconFood,
	"饮品": IconFood,
	"水果": IconFood,
	"零食": IconFood,
	"交通": IconTransport,
	"教育": IconEducation,
	"娱乐": IconEntertainment,
	"生活": IconLife,
	"运动": IconSports,
	"旅行": IconTravel,
	"住房": IconHousing,
	"保险": IconInsurance,
	"服务": IconService,
	"公益": IconCharity,
	"医疗": IconMedical,
	"宠物": IconPet,
	"转账": IconTransfer,
	"人情": IconSocial,
	"日用": IconDaily,
}

var knownCategories = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// IsKnownCategory reports whether label belongs to the vocabulary.
func IsKnownCategory(label string) bool {
	_, ok := knownCategories[label]
	return ok
}

// IconFor returns the icon for label. Labels outside the vocabulary, and the
// ones without a dedicated glyph, get IconOther.
func IconFor(label string) Icon {
	if icon, ok := categoryIcons[label]; ok {
		return icon
	}
	return IconOther
}
