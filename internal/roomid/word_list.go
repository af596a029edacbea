package roomid

var animals = []string{
	"otter", "heron", "lynx", "puffin", "badger", "wren", "vole", "stoat", "plover", "shrew",
	"falcon", "gecko", "newt", "ibis", "tapir", "quokka", "marmot", "osprey", "dormouse", "egret",
	"beluga", "manatee", "kestrel", "lemming", "bittern", "curlew", "dunlin", "gannet", "murre", "skua",
}

var colors = []string{
	"amber", "cobalt", "coral", "indigo", "jade", "maroon", "ochre", "sepia", "teal", "umber",
	"violet", "crimson", "saffron", "slate", "ivory", "onyx", "pearl", "russet", "sable", "verdigris",
}

var weather = []string{
	"breeze", "drizzle", "frost", "gale", "hail", "mist", "monsoon", "rainbow", "sleet", "squall",
	"sunbeam", "thaw", "thunder", "twilight", "zephyr", "aurora", "cirrus", "cumulus", "dewdrop", "fogbank",
}

var places = []string{
	"atoll", "bayou", "canyon", "delta", "fjord", "glade", "harbor", "isthmus", "lagoon", "mesa",
	"oasis", "plateau", "quarry", "ridge", "summit", "tundra", "valley", "wetland", "archipelago", "butte",
}
