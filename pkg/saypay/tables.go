package saypay

import (
	"saypay/pkg/services"
)

// NumberWord maps a spoken number word to its digit string.
type NumberWord struct {
	Word  string
	Digit string
}

// LanguageTable holds per-language parsing data for the heuristic parser.
// Compound number words (containing hyphens or spaces) must be listed before
// their parts so longer forms win during substitution.
type LanguageTable struct {
	Code        string
	Name        string
	NumberWords []NumberWord
	Keywords    map[services.Category][]string
}

// CurrencyHint maps symbols and keywords to an ISO currency code.
type CurrencyHint struct {
	Currency string
	Tokens   []string
}

var currencyHints = []CurrencyHint{
	{Currency: "EUR", Tokens: []string{"€", "euro"}},
	{Currency: "GBP", Tokens: []string{"£", "pound"}},
	{Currency: "INR", Tokens: []string{"₹", "rupee", "रुपए"}},
}

var languageTables = []LanguageTable{english, hindi, spanish, french}

// LanguageName returns a human-readable name for a supported language code,
// used for model prompt context. Unknown codes map to English.
func LanguageName(code string) string {
	for _, lt := range languageTables {
		if lt.Code == code {
			return lt.Name
		}
	}
	return english.Name
}

var english = LanguageTable{
	Code: "en",
	Name: "English",
	NumberWords: []NumberWord{
		{"zero", "0"}, {"one", "1"}, {"two", "2"}, {"three", "3"}, {"four", "4"},
		{"five", "5"}, {"six", "6"}, {"seven", "7"}, {"eight", "8"}, {"nine", "9"},
		{"ten", "10"}, {"eleven", "11"}, {"twelve", "12"}, {"thirteen", "13"},
		{"fourteen", "14"}, {"fifteen", "15"}, {"sixteen", "16"}, {"seventeen", "17"},
		{"eighteen", "18"}, {"nineteen", "19"}, {"twenty", "20"}, {"thirty", "30"},
		{"forty", "40"}, {"fifty", "50"}, {"sixty", "60"}, {"seventy", "70"},
		{"eighty", "80"}, {"ninety", "90"}, {"hundred", "100"},
	},
	Keywords: map[services.Category][]string{
		services.CategoryFood: {
			"lunch", "dinner", "breakfast", "coffee", "restaurant", "food", "eating",
			"meal", "pizza", "burger", "mcdonald", "starbucks", "cafe", "snack", "drink", "chipotle",
		},
		services.CategoryTransport: {
			"uber", "taxi", "gas", "fuel", "parking", "bus", "train", "ride",
			"metro", "subway", "station", "car", "vehicle", "transport",
		},
		services.CategoryRent: {
			"rent", "mortgage", "housing", "apartment", "lease", "property",
		},
		services.CategoryShopping: {
			"shopping", "store", "buy", "bought", "purchase", "groceries",
			"walmart", "target", "amazon", "clothes", "shoes",
		},
		services.CategoryHealth: {
			"doctor", "medicine", "pharmacy", "hospital", "medical", "prescription", "dentist", "clinic",
		},
		services.CategoryEntertainment: {
			"movie", "cinema", "game", "concert", "show", "entertainment", "tickets", "theater", "music",
		},
		services.CategoryUtilities: {
			"electric", "water", "internet", "phone", "utility", "bill", "payment", "cable", "wifi",
		},
	},
}

var hindi = LanguageTable{
	Code: "hi",
	Name: "Hindi",
	NumberWords: []NumberWord{
		{"शून्य", "0"}, {"एक", "1"}, {"दो", "2"}, {"तीन", "3"}, {"चार", "4"},
		{"पांच", "5"}, {"छह", "6"}, {"सात", "7"}, {"आठ", "8"}, {"नौ", "9"},
		{"दस", "10"}, {"बीस", "20"}, {"तीस", "30"}, {"चालीस", "40"}, {"पचास", "50"},
		{"साठ", "60"}, {"सत्तर", "70"}, {"अस्सी", "80"}, {"नब्बे", "90"}, {"सौ", "100"},
	},
	Keywords: map[services.Category][]string{
		services.CategoryFood: {
			"खाना", "भोजन", "लंच", "डिनर", "नाश्ता", "कॉफी", "रेस्टोरेंट", "खाने", "पिज्जा", "बर्गर", "चाय",
		},
		services.CategoryTransport: {
			"उबर", "टैक्सी", "पेट्रोल", "ईंधन", "पार्किंग", "बस", "ट्रेन", "मेट्रो", "स्टेशन", "कार", "वाहन", "परिवहन",
		},
		services.CategoryRent: {
			"किराया", "घर", "अपार्टमेंट", "मकान", "संपत्ति",
		},
		services.CategoryShopping: {
			"खरीदारी", "दुकान", "खरीदना", "खरीदा", "किराना", "कपड़े", "जूते", "सामान",
		},
		services.CategoryHealth: {
			"डॉक्टर", "दवा", "फार्मेसी", "अस्पताल", "चिकित्सा", "दंत चिकित्सक", "क्लिनिक",
		},
		services.CategoryEntertainment: {
			"फिल्म", "सिनेमा", "खेल", "कॉन्सर्ट", "शो", "मनोरंजन", "टिकट", "थिएटर", "संगीत",
		},
		services.CategoryUtilities: {
			"बिजली", "पानी", "इंटरनेट", "फोन", "उपयोगिता", "बिल", "भुगतान", "केबल", "वाईफाई",
		},
	},
}

var spanish = LanguageTable{
	Code: "es",
	Name: "Spanish",
	NumberWords: []NumberWord{
		{"cero", "0"}, {"uno", "1"}, {"dos", "2"}, {"tres", "3"}, {"cuatro", "4"},
		{"cinco", "5"}, {"seis", "6"}, {"siete", "7"}, {"ocho", "8"}, {"nueve", "9"},
		{"diez", "10"}, {"veinticinco", "25"}, {"veinte", "20"}, {"treinta", "30"},
		{"cuarenta", "40"}, {"cincuenta", "50"}, {"sesenta", "60"}, {"setenta", "70"},
		{"ochenta", "80"}, {"noventa", "90"}, {"cien", "100"},
	},
	Keywords: map[services.Category][]string{
		services.CategoryFood: {
			"almuerzo", "cena", "desayuno", "café", "restaurante", "comida", "comer", "pizza", "hamburguesa", "bebida",
		},
		services.CategoryTransport: {
			"taxi", "gasolina", "combustible", "estacionamiento", "autobús", "tren",
			"metro", "estación", "coche", "vehículo", "transporte",
		},
		services.CategoryRent: {
			"alquiler", "hipoteca", "vivienda", "apartamento", "propiedad",
		},
		services.CategoryShopping: {
			"compras", "tienda", "comprar", "compré", "supermercado", "ropa", "zapatos", "mercancía",
		},
		services.CategoryHealth: {
			"doctor", "medicina", "farmacia", "hospital", "médico", "receta", "dentista", "clínica",
		},
		services.CategoryEntertainment: {
			"película", "cine", "juego", "concierto", "espectáculo", "entretenimiento", "entradas", "teatro", "música",
		},
		services.CategoryUtilities: {
			"electricidad", "agua", "internet", "teléfono", "servicio", "factura", "pago", "cable", "wifi",
		},
	},
}

var french = LanguageTable{
	Code: "fr",
	Name: "French",
	NumberWords: []NumberWord{
		// compounds first
		{"quatre-vingt-dix", "90"}, {"quatre-vingts", "80"}, {"soixante-dix", "70"},
		{"vingt-cinq", "25"},
		{"zéro", "0"}, {"un", "1"}, {"deux", "2"}, {"trois", "3"}, {"quatre", "4"},
		{"cinq", "5"}, {"six", "6"}, {"sept", "7"}, {"huit", "8"}, {"neuf", "9"},
		{"dix", "10"}, {"vingt", "20"}, {"trente", "30"}, {"quarante", "40"},
		{"cinquante", "50"}, {"soixante", "60"}, {"cent", "100"},
	},
	Keywords: map[services.Category][]string{
		services.CategoryFood: {
			"déjeuner", "dîner", "petit-déjeuner", "café", "restaurant", "nourriture", "manger", "pizza", "hamburger", "boisson",
		},
		services.CategoryTransport: {
			"taxi", "essence", "carburant", "parking", "bus", "train", "métro", "station", "voiture", "véhicule", "transport",
		},
		services.CategoryRent: {
			"loyer", "hypothèque", "logement", "appartement", "propriété",
		},
		services.CategoryShopping: {
			"achats", "magasin", "acheter", "acheté", "épicerie", "vêtements", "chaussures", "marchandise",
		},
		services.CategoryHealth: {
			"docteur", "médecine", "pharmacie", "hôpital", "médical", "ordonnance", "dentiste", "clinique",
		},
		services.CategoryEntertainment: {
			"film", "cinéma", "jeu", "concert", "spectacle", "divertissement", "billets", "théâtre", "musique",
		},
		services.CategoryUtilities: {
			"électricité", "eau", "internet", "téléphone", "service", "facture", "paiement", "câble", "wifi",
		},
	},
}
