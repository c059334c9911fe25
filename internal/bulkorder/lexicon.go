package bulkorder

// Hindi/Hinglish to canonical English lexicons. Keys are matched as whole
// words against the lowercased utterance.

var colorLexicon = map[string]string{
	"laal": "red", "red": "red",
	"neela": "blue", "blue": "blue", "nila": "blue",
	"hara": "green", "green": "green", "hari": "green",
	"peela": "yellow", "yellow": "yellow", "pili": "yellow",
	"safed": "white", "white": "white", "sada": "white",
	"kaala": "black", "black": "black", "kala": "black",
	"gulabi": "pink", "pink": "pink",
	"narangi": "orange", "orange": "orange",
	"baigani": "purple", "purple": "purple",
	"bhura": "brown", "brown": "brown",
	"grey": "grey", "gray": "grey", "sleti": "grey",
	"maroon": "maroon", "merun": "maroon",
	"cream": "cream", "off-white": "off-white",
	"golden": "golden", "sona": "golden",
	"silver": "silver", "chandi": "silver",
}

var fabricLexicon = map[string]string{
	"silk": "silk", "resham": "silk", "reshmi": "silk",
	"cotton": "cotton", "kapas": "cotton", "suti": "cotton",
	"polyester": "polyester", "poly": "polyester",
	"linen": "linen", "lenin": "linen",
	"wool": "wool", "oon": "wool",
	"synthetic": "synthetic", "synth": "synthetic",
	"chiffon": "chiffon", "shifon": "chiffon",
	"georgette": "georgette", "jorjet": "georgette",
	"crepe": "crepe", "krep": "crepe",
	"velvet": "velvet", "makhmal": "velvet",
	"satin": "satin", "setin": "satin",
	"rayon": "rayon", "reyon": "rayon",
}
