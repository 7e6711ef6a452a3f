package setcode

// editionAliases maps historical edition names to set codes
var editionAliases = map[string]string{
	// core sets
	"Limited Edition Alpha": "lea",
	"Alpha":                 "lea",
	"Limited Edition Beta":  "leb",
	"Beta":                  "leb",
	"Unlimited Edition":     "2ed",
	"Unlimited":             "2ed",
	"Revised Edition":       "3ed",
	"Revised":               "3ed",
	"Fourth Edition":        "4ed",
	"Fifth Edition":         "5ed",
	"Sixth Edition":         "6ed",
	"Classic Sixth Edition": "6ed",
	"Seventh Edition":       "7ed",
	"Eighth Edition":        "8ed",
	"Ninth Edition":         "9ed",
	"Tenth Edition":         "10e",
	"Magic 2010":            "m10",
	"Magic 2011":            "m11",
	"Magic 2012":            "m12",
	"Magic 2013":            "m13",
	"Magic 2014":            "m14",
	"Magic 2014 Core Set":   "m14",
	"Magic 2015":            "m15",
	"Magic 2015 Core Set":   "m15",
	"Magic Origins":         "ori",
	"Core Set 2019":         "m19",
	"Core Set 2020":         "m20",
	"Core Set 2021":         "m21",
	"Foundations":           "fdn",

	// early expansions
	"Arabian Nights":    "arn",
	"Antiquities":       "atq",
	"Legends":           "leg",
	"The Dark":          "drk",
	"Fallen Empires":    "fem",
	"Ice Age":           "ice",
	"Homelands":         "hml",
	"Alliances":         "all",
	"Mirage":            "mir",
	"Visions":           "vis",
	"Weatherlight":      "wth",
	"Tempest":           "tmp",
	"Stronghold":        "sth",
	"Exodus":            "exo",
	"Urza's Saga":       "usg",
	"Urza's Legacy":     "ulg",
	"Urza's Destiny":    "uds",
	"Mercadian Masques": "mmq",
	"Nemesis":           "nem",
	"Prophecy":          "pcy",
	"Invasion":          "inv",
	"Planeshift":        "pls",
	"Apocalypse":        "apc",
	"Odyssey":           "ody",
	"Torment":           "tor",
	"Judgment":          "jud",
	"Onslaught":         "ons",
	"Legions":           "lgn",
	"Scourge":           "scg",
	"Mirrodin":          "mrd",
	"Darksteel":         "dst",
	"Fifth Dawn":        "5dn",

	"Champions of Kamigawa":     "chk",
	"Betrayers of Kamigawa":     "bok",
	"Saviors of Kamigawa":       "sok",
	"Ravnica: City of Guilds":   "rav",
	"Guildpact":                 "gpt",
	"Dissension":                "dis",
	"Coldsnap":                  "csp",
	"Time Spiral":               "tsp",
	"Planar Chaos":              "plc",
	"Future Sight":              "fut",
	"Lorwyn":                    "lrw",
	"Morningtide":               "mor",
	"Shadowmoor":                "shm",
	"Eventide":                  "eve",
	"Shards of Alara":           "ala",
	"Conflux":                   "con",
	"Alara Reborn":              "arb",
	"Zendikar":                  "zen",
	"Worldwake":                 "wwk",
	"Rise of the Eldrazi":       "roe",
	"Scars of Mirrodin":         "som",
	"Mirrodin Besieged":         "mbs",
	"New Phyrexia":              "nph",
	"Innistrad":                 "isd",
	"Dark Ascension":            "dka",
	"Avacyn Restored":           "avr",
	"Return to Ravnica":         "rtr",
	"Gatecrash":                 "gtc",
	"Dragon's Maze":             "dgm",
	"Theros":                    "ths",
	"Born of the Gods":          "bng",
	"Journey into Nyx":          "jou",
	"Khans of Tarkir":           "ktk",
	"Fate Reforged":             "frf",
	"Dragons of Tarkir":         "dtk",
	"Battle for Zendikar":       "bfz",
	"Oath of the Gatewatch":     "ogw",
	"Shadows over Innistrad":    "soi",
	"Eldritch Moon":             "emn",
	"Kaladesh":                  "kld",
	"Aether Revolt":             "aer",
	"Amonkhet":                  "akh",
	"Hour of Devastation":       "hou",
	"Ixalan":                    "xln",
	"Rivals of Ixalan":          "rix",
	"Dominaria":                 "dom",
	"Guilds of Ravnica":         "grn",
	"Ravnica Allegiance":        "rna",
	"War of the Spark":          "war",
	"Throne of Eldraine":        "eld",
	"Theros Beyond Death":       "thb",
	"Ikoria: Lair of Behemoths": "iko",
	"Zendikar Rising":           "znr",
	"Kaldheim":                  "khm",

	"Strixhaven: School of Mages":        "stx",
	"Adventures in the Forgotten Realms": "afr",
	"Innistrad: Midnight Hunt":           "mid",
	"Innistrad: Crimson Vow":             "vow",
	"Kamigawa: Neon Dynasty":             "neo",
	"Streets of New Capenna":             "snc",
	"Dominaria United":                   "dmu",
	"The Brothers' War":                  "bro",
	"Phyrexia: All Will Be One":          "one",
	"March of the Machine":               "mom",
	"Wilds of Eldraine":                  "woe",
	"The Lost Caverns of Ixalan":         "lci",
	"Murders at Karlov Manor":            "mkm",
	"Outlaws of Thunder Junction":        "otj",
	"Bloomburrow":                        "blb",
	"Duskmourn: House of Horror":         "dsk",

	// supplemental
	"Modern Masters":         "mma",
	"Double Masters":         "2xm",
	"Commander Legends":      "cmr",
	"Time Spiral Remastered": "tsr",
}
