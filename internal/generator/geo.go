package generator

import (
	"github.com/uma-arai/hotelgen-batch/internal/config"
	"github.com/uma-arai/hotelgen-batch/internal/model"
)

// City は市と代表的な郵便番号です
type City struct {
	Name string
	Zip  string
}

// State は州ごとの人口比・税率・料金倍率です
type State struct {
	Code string
	// Population は人口 (百万人) で、施設と顧客の配分に使います
	Population float64
	// SalesTaxBP は宿泊に課す売上税率 (ベーシスポイント) です
	SalesTaxBP      int64
	// LuxuryTaxBP は課税対象額が LuxuryTaxThreshold を超える宿泊に追加で課す税率です
	LuxuryTaxBP     int64
	PriceMultiplier config.Range
	Cities          []City
}

func pm(mean, sd float64) config.Range {
	return config.Range{Mean: mean, SD: sd, Min: 0.5}
}

// States は州データです (コード順)
var States = []State{
	{"AK", 0.73, 0, 0, pm(1.25, 0.05), []City{{"Anchorage", "99501"}, {"Fairbanks", "99701"}}},
	{"AL", 5.02, 400, 0, pm(0.85, 0.05), []City{{"Birmingham", "35203"}, {"Mobile", "36602"}}},
	{"AR", 3.01, 650, 0, pm(0.8, 0.05), []City{{"Little Rock", "72201"}, {"Fayetteville", "72701"}}},
	{"AZ", 7.15, 560, 0, pm(1.0, 0.05), []City{{"Phoenix", "85004"}, {"Tucson", "85701"}, {"Sedona", "86336"}}},
	{"CA", 39.54, 725, 200, pm(1.35, 0.1), []City{{"Los Angeles", "90012"}, {"San Francisco", "94103"}, {"San Diego", "92101"}, {"Sacramento", "95814"}}},
	{"CO", 5.77, 290, 200, pm(1.15, 0.05), []City{{"Denver", "80202"}, {"Colorado Springs", "80903"}, {"Aspen", "81611"}}},
	{"CT", 3.61, 1500, 0, pm(1.15, 0.05), []City{{"Hartford", "06103"}, {"New Haven", "06510"}}},
	{"DC", 0.69, 1495, 300, pm(1.4, 0.05), []City{{"Washington", "20001"}}},
	{"DE", 0.99, 800, 0, pm(1.0, 0.05), []City{{"Wilmington", "19801"}, {"Dover", "19901"}}},
	{"FL", 21.54, 600, 500, pm(1.1, 0.1), []City{{"Miami", "33130"}, {"Orlando", "32801"}, {"Tampa", "33602"}, {"Jacksonville", "32202"}}},
	{"GA", 10.71, 400, 0, pm(0.95, 0.05), []City{{"Atlanta", "30303"}, {"Savannah", "31401"}}},
	{"HI", 1.46, 1025, 300, pm(1.6, 0.1), []City{{"Honolulu", "96813"}, {"Hilo", "96720"}}},
	{"IA", 3.19, 600, 0, pm(0.8, 0.05), []City{{"Des Moines", "50309"}, {"Cedar Rapids", "52401"}}},
	{"ID", 1.84, 600, 0, pm(0.9, 0.05), []City{{"Boise", "83702"}, {"Coeur d'Alene", "83814"}}},
	{"IL", 12.81, 625, 450, pm(1.15, 0.05), []City{{"Chicago", "60601"}, {"Springfield", "62701"}}},
	{"IN", 6.79, 700, 0, pm(0.85, 0.05), []City{{"Indianapolis", "46204"}, {"Fort Wayne", "46802"}}},
	{"KS", 2.94, 650, 0, pm(0.8, 0.05), []City{{"Wichita", "67202"}, {"Topeka", "66603"}}},
	{"KY", 4.51, 600, 0, pm(0.85, 0.05), []City{{"Louisville", "40202"}, {"Lexington", "40507"}}},
	{"LA", 4.66, 445, 400, pm(0.95, 0.05), []City{{"New Orleans", "70112"}, {"Baton Rouge", "70801"}}},
	{"MA", 7.03, 570, 275, pm(1.3, 0.05), []City{{"Boston", "02108"}, {"Worcester", "01608"}}},
	{"MD", 6.18, 600, 0, pm(1.05, 0.05), []City{{"Baltimore", "21201"}, {"Annapolis", "21401"}}},
	{"ME", 1.36, 900, 0, pm(1.0, 0.05), []City{{"Portland", "04101"}, {"Bar Harbor", "04609"}}},
	{"MI", 10.08, 600, 0, pm(0.9, 0.05), []City{{"Detroit", "48226"}, {"Grand Rapids", "49503"}}},
	{"MN", 5.71, 688, 0, pm(0.95, 0.05), []City{{"Minneapolis", "55401"}, {"Saint Paul", "55102"}, {"Duluth", "55802"}}},
	{"MO", 6.15, 423, 0, pm(0.85, 0.05), []City{{"Kansas City", "64106"}, {"St. Louis", "63101"}}},
	{"MS", 2.96, 700, 0, pm(0.8, 0.05), []City{{"Jackson", "39201"}, {"Biloxi", "39530"}}},
	{"MT", 1.08, 800, 0, pm(0.95, 0.05), []City{{"Billings", "59101"}, {"Bozeman", "59715"}}},
	{"NC", 10.44, 475, 0, pm(0.95, 0.05), []City{{"Charlotte", "28202"}, {"Raleigh", "27601"}, {"Asheville", "28801"}}},
	{"ND", 0.78, 500, 0, pm(0.85, 0.05), []City{{"Fargo", "58102"}, {"Bismarck", "58501"}}},
	{"NE", 1.96, 550, 0, pm(0.8, 0.05), []City{{"Omaha", "68102"}, {"Lincoln", "68508"}}},
	{"NH", 1.38, 850, 0, pm(1.05, 0.05), []City{{"Manchester", "03101"}, {"Portsmouth", "03801"}}},
	{"NJ", 9.29, 663, 500, pm(1.15, 0.05), []City{{"Newark", "07102"}, {"Atlantic City", "08401"}}},
	{"NM", 2.12, 513, 0, pm(0.9, 0.05), []City{{"Albuquerque", "87102"}, {"Santa Fe", "87501"}}},
	{"NV", 3.10, 685, 300, pm(1.05, 0.1), []City{{"Las Vegas", "89101"}, {"Reno", "89501"}}},
	{"NY", 20.20, 400, 587, pm(1.45, 0.1), []City{{"New York", "10001"}, {"Buffalo", "14202"}, {"Albany", "12207"}}},
	{"OH", 11.80, 575, 0, pm(0.85, 0.05), []City{{"Columbus", "43215"}, {"Cleveland", "44113"}, {"Cincinnati", "45202"}}},
	{"OK", 3.96, 450, 0, pm(0.8, 0.05), []City{{"Oklahoma City", "73102"}, {"Tulsa", "74103"}}},
	{"OR", 4.24, 150, 0, pm(1.05, 0.05), []City{{"Portland", "97204"}, {"Eugene", "97401"}}},
	{"PA", 13.00, 600, 0, pm(1.0, 0.05), []City{{"Philadelphia", "19107"}, {"Pittsburgh", "15222"}}},
	{"RI", 1.10, 1300, 0, pm(1.1, 0.05), []City{{"Providence", "02903"}, {"Newport", "02840"}}},
	{"SC", 5.12, 700, 0, pm(0.9, 0.05), []City{{"Charleston", "29401"}, {"Columbia", "29201"}}},
	{"SD", 0.89, 450, 0, pm(0.85, 0.05), []City{{"Sioux Falls", "57104"}, {"Rapid City", "57701"}}},
	{"TN", 6.91, 700, 0, pm(0.9, 0.05), []City{{"Nashville", "37203"}, {"Memphis", "38103"}}},
	{"TX", 29.15, 625, 600, pm(0.95, 0.05), []City{{"Houston", "77002"}, {"Dallas", "75201"}, {"Austin", "78701"}, {"San Antonio", "78205"}}},
	{"UT", 3.27, 610, 0, pm(0.95, 0.05), []City{{"Salt Lake City", "84101"}, {"Park City", "84060"}}},
	{"VA", 8.63, 530, 0, pm(1.0, 0.05), []City{{"Richmond", "23219"}, {"Virginia Beach", "23451"}}},
	{"VT", 0.64, 900, 0, pm(1.05, 0.05), []City{{"Burlington", "05401"}, {"Stowe", "05672"}}},
	{"WA", 7.71, 650, 0, pm(1.15, 0.05), []City{{"Seattle", "98101"}, {"Spokane", "99201"}}},
	{"WI", 5.89, 500, 0, pm(0.9, 0.05), []City{{"Milwaukee", "53202"}, {"Madison", "53703"}}},
	{"WV", 1.79, 600, 0, pm(0.8, 0.05), []City{{"Charleston", "25301"}, {"Morgantown", "26505"}}},
	{"WY", 0.58, 400, 0, pm(0.95, 0.05), []City{{"Cheyenne", "82001"}, {"Jackson", "83001"}}},
}

var statesByCode = func() map[string]*State {
	m := make(map[string]*State, len(States))
	for i := range States {
		m[States[i].Code] = &States[i]
	}
	return m
}()

// LookupState は州コードから州データを返します
func LookupState(code string) (*State, bool) {
	s, ok := statesByCode[code]
	return s, ok
}

// LuxuryTaxThreshold はラグジュアリー税を課す課税対象額の下限です (この額を超えると課税)
var LuxuryTaxThreshold = model.Dollars(100)

// SalesTaxBasisPoints は州の売上税率を返します
// 未知の州は非課税として扱います
func SalesTaxBasisPoints(code string) int64 {
	if s, ok := statesByCode[code]; ok {
		return s.SalesTaxBP
	}
	return 0
}

// LuxuryTaxBasisPoints は州のラグジュアリー税率を返します
// 未知の州と税のない州は 0 です
func LuxuryTaxBasisPoints(code string) int64 {
	if s, ok := statesByCode[code]; ok {
		return s.LuxuryTaxBP
	}
	return 0
}
