package generator

import (
	"fmt"
	"math/rand/v2"
)

// Kind はプールから取り出す値の種類です
type Kind int

const (
	KindFirstName Kind = iota
	KindLastName
	KindStreetName
	KindAdjective
	KindNoun
	KindPropertyNameTemplate
	KindPropertyEmailUser
	KindDomainTLD
	KindURLStem
	KindCustomerEmailTemplate
	KindCustomerEmailDomain
	KindCardBrand
)

// Pools は名前や住所などのもっともらしい値を供給します
// 値の選択には呼び出し側の乱数ストリームだけを使い、内部状態を持たない実装にします
type Pools interface {
	Pick(kind Kind, r *rand.Rand) string
}

// CuratedPools は固定の候補リストから選ぶ Pools の実装です
type CuratedPools struct {
	values map[Kind][]string
}

// NewCuratedPools は組み込みの候補リストでPoolsを作成します
func NewCuratedPools() *CuratedPools {
	return &CuratedPools{values: curatedValues}
}

// Pick は候補から1つを一様に選びます
func (p *CuratedPools) Pick(kind Kind, r *rand.Rand) string {
	values, ok := p.values[kind]
	if !ok || len(values) == 0 {
		panic(fmt.Sprintf("generator: no values for kind %d", kind))
	}
	return values[r.IntN(len(values))]
}

var curatedValues = map[Kind][]string{
	KindFirstName: {
		"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda",
		"David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
		"Thomas", "Sarah", "Christopher", "Karen", "Charles", "Lisa", "Daniel", "Nancy",
		"Matthew", "Betty", "Anthony", "Sandra", "Mark", "Margaret", "Donald", "Ashley",
		"Steven", "Kimberly", "Andrew", "Emily", "Paul", "Donna", "Joshua", "Michelle",
		"Kenneth", "Carol", "Kevin", "Amanda", "Brian", "Melissa", "Timothy", "Deborah",
		"Ronald", "Stephanie", "George", "Rebecca", "Jason", "Sharon", "Edward", "Laura",
		"Jeffrey", "Cynthia", "Ryan", "Dorothy", "Jacob", "Amy", "Nicholas", "Kathleen",
		"Gary", "Angela", "Eric", "Shirley", "Jonathan", "Emma", "Stephen", "Brenda",
		"Larry", "Pamela", "Justin", "Nicole", "Scott", "Anna", "Brandon", "Samantha",
		"Benjamin", "Katherine", "Samuel", "Christine", "Gregory", "Debra", "Alexander", "Rachel",
		"Patrick", "Carolyn", "Frank", "Janet", "Raymond", "Maria", "Jack", "Olivia",
		"Dennis", "Heather", "Jerry", "Helen", "Tyler", "Catherine", "Aaron", "Diane",
		"José", "Julia", "Adam", "Victoria", "Nathan", "Kelly", "Henry", "Christina",
		"Zachary", "Joan", "Douglas", "Evelyn", "Peter", "Lauren", "Kyle", "Judith",
		"Noah", "Megan", "Ethan", "Andrea", "Jeremy", "Cheryl", "Walter", "Hannah",
		"Christian", "Jacqueline", "Keith", "Martha", "Roger", "Madison", "Terry", "Teresa",
		"Austin", "Gloria", "Sean", "Sara", "Gerald", "Janice", "Carl", "Ann",
		"Harold", "Kathryn", "Dylan", "Abigail", "Arthur", "Sophia", "Lawrence", "Frances",
		"Jordan", "Jean", "Jesse", "Alice", "Bryan", "Judy", "Billy", "Isabella",
		"Bruce", "Julie", "Gabriel", "Grace", "Joe", "Amber", "Logan", "Denise",
		"Alan", "Danielle", "Juan", "Marilyn", "Albert", "Beverly", "Willie", "Charlotte",
		"Elijah", "Natalie", "Wayne", "Theresa", "Randy", "Diana", "Vincent", "Brittany",
		"Mason", "Doris", "Roy", "Kayla", "Ralph", "Alexis", "Bobby", "Lori",
		"Russell", "Marie", "Bradley", "Chloe", "Philip", "Zoë", "Eugene", "Renée",
	},
	KindLastName: {
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
		"Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson", "Thomas",
		"Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez", "Thompson", "White",
		"Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson", "Walker", "Young",
		"Allen", "King", "Wright", "Scott", "Torres", "Nguyen", "Hill", "Flores",
		"Green", "Adams", "Nelson", "Baker", "Hall", "Rivera", "Campbell", "Mitchell",
		"Carter", "Roberts", "Gomez", "Phillips", "Evans", "Turner", "Diaz", "Parker",
		"Cruz", "Edwards", "Collins", "Reyes", "Stewart", "Morris", "Morales", "Murphy",
		"Cook", "Rogers", "Gutierrez", "Ortiz", "Morgan", "Cooper", "Peterson", "Bailey",
		"Reed", "Kelly", "Howard", "Ramos", "Kim", "Cox", "Ward", "Richardson",
		"Watson", "Brooks", "Chavez", "Wood", "James", "Bennett", "Gray", "Mendoza",
		"Ruiz", "Hughes", "Price", "Alvarez", "Castillo", "Sanders", "Patel", "Myers",
		"Long", "Ross", "Foster", "Jiménez", "Powell", "Jenkins", "Perry", "Russell",
		"Sullivan", "Bell", "Coleman", "Butler", "Henderson", "Barnes", "Gonzales", "Fisher",
		"Vasquez", "Simmons", "Romero", "Jordan", "Patterson", "Alexander", "Hamilton", "Graham",
		"Reynolds", "Griffin", "Wallace", "Moreno", "West", "Cole", "Hayes", "Bryant",
		"Herrera", "Gibson", "Ellis", "Tran", "Medina", "Aguilar", "Stevens", "Murray",
		"Ford", "Castro", "Marshall", "Owens", "Harrison", "Fernandez", "McDonald", "Woods",
		"Washington", "Kennedy", "Wells", "Vargas", "Henry", "Chen", "Freeman", "Webb",
		"Tucker", "Guzman", "Burns", "Crawford", "Olson", "Simpson", "Porter", "Hunter",
		"Gordon", "Mendez", "Silva", "Shaw", "Snyder", "Mason", "Dixon", "Muñoz",
		"Hunt", "Hicks", "Holmes", "Palmer", "Wagner", "Black", "Robertson", "Boyd",
		"O'Brien", "Schmidt", "Müller", "Yamamoto", "Tanaka", "Nakamura", "Kowalski", "Novak",
	},
	KindStreetName: {
		"Main Street", "Oak Avenue", "Maple Drive", "Cedar Lane", "Pine Street", "Elm Street",
		"Washington Avenue", "Lake Road", "Hill Street", "Park Avenue", "Sunset Boulevard", "River Road",
		"Church Street", "Highland Avenue", "Forest Drive", "Meadow Lane", "Spring Street", "Ridge Road",
		"Walnut Street", "Chestnut Street", "Willow Way", "Birch Court", "Lincoln Avenue", "Jefferson Street",
		"Madison Avenue", "Franklin Road", "Jackson Street", "Mill Road", "Valley View Drive", "Broadway",
		"Market Street", "Water Street", "Center Street", "Union Street", "Prospect Avenue", "Harbor Drive",
		"Ocean Boulevard", "Bay Street", "Beach Road", "Canyon Road", "Mountain View Road", "Summit Avenue",
		"Airport Road", "College Avenue", "University Drive", "Commerce Street", "Industrial Parkway", "Railroad Avenue",
		"Country Club Drive", "Golf Course Road", "Vineyard Lane", "Orchard Street", "Quarry Road", "Depot Street",
	},
	KindAdjective: {
		"Golden", "Silver", "Royal", "Grand", "Blue", "Quiet", "Sunny", "Crimson",
		"Emerald", "Hidden", "Lucky", "Majestic", "Misty", "Noble", "Old", "Peaceful",
		"Rustic", "Serene", "Shining", "Twin", "Velvet", "Whispering", "Wild", "Coastal",
		"Amber", "Cozy", "Evening", "Gentle", "Harbor", "Ivory", "Lone", "Northern",
	},
	KindNoun: {
		"Pines", "Lantern", "Anchor", "Harbor", "Meadow", "Ridge", "Oak", "Falcon",
		"Willow", "Summit", "Canyon", "Lighthouse", "Horizon", "Crest", "Brook", "Haven",
		"Fox", "Eagle", "Sparrow", "Palm", "Compass", "Gate", "Lodge", "Bay",
		"Cove", "Garden", "Orchard", "Trail", "Star", "Moon", "Sun", "River",
	},
	KindPropertyNameTemplate: {
		"{adj} {noun} {type}",
		"The {adj} {noun}",
		"{noun} {type} {loc}",
		"{adj} {noun} {type} {loc}",
		"{loc} {noun} {type}",
		"The {noun} at {loc}",
	},
	KindPropertyEmailUser: {
		"info", "reservations", "frontdesk", "stay", "contact", "hello", "bookings", "guestservices",
	},
	KindDomainTLD: {
		".com", ".com", ".com", ".net", ".us", ".travel", ".hotel", ".biz",
	},
	KindURLStem: {
		"home", "welcome", "index.html", "stay", "rooms", "book",
	},
	KindCustomerEmailTemplate: {
		"{fname}.{lname}@{domain}",
		"{fname}{lname}@{domain}",
		"{f_initial}{lname}{year}@{domain}",
		"{fname}{l_initial}@{domain}",
		"{lname}.{fname}{year}@{domain}",
		"{fname}_{lname}@{domain}",
	},
	KindCustomerEmailDomain: {
		"gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "icloud.com", "aol.com",
		"proton.me", "comcast.net", "att.net", "verizon.net", "example.com", "mail.com",
	},
	KindCardBrand: {
		"Visa", "Visa", "Visa", "Mastercard", "Mastercard", "American Express", "Discover",
	},
}
