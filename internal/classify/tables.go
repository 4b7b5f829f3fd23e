package classify

// Game link rules. Order matters: the screenshot/poster image rules
// must come before the host rules, and host rules with a path or query
// component before the catch-all row for the same host.
var gameTable = compile([]Rule{
	{Host: "", Path: `.*screenshot.*\.(png|jpg|gif|bmp|jpeg)`, Slug: "screenshot", DefaultDescription: "Скриншот"},
	{Host: "", Path: `.*\.(png|jpg|gif|bmp|jpeg)`, Slug: "poster", DefaultDescription: "Обложка"},
	{Host: "ifwiki.ru", Path: `/files/.*`, Slug: "download_direct", DefaultDescription: "Скачать с IfWiki"},
	{Host: "ifwiki.ru", Slug: "game_page", DefaultDescription: "Страница на IfWiki"},
	{Host: "urq.plut.info", Path: `.*/files/.*`, Slug: "download_direct", DefaultDescription: "Скачать с плута"},
	{Host: "urq.plut.info", Slug: "game_page", DefaultDescription: "Страница на плуте"},
	{Host: "yadi.sk", Slug: "download_landing", DefaultDescription: "Скачать с Яндекс.диска"},
	{Host: "rilarhiv.ru", Slug: "download_direct", DefaultDescription: "Скачать с РилАрхива"},
	{Host: "instead-games.ru", Path: `.*/download/.*`, Slug: "download_direct", DefaultDescription: "Скачать с инстеда"},
	{Host: "instead-games.ru", Slug: "game_page", DefaultDescription: "Страница на инстеде"},
	{Host: "instead.syscall.ru", Path: `.*/forum/.*`, Slug: "forum", DefaultDescription: "Форум на инстеде"},
	{Host: "youtube.com", Slug: "video", DefaultDescription: "Видео игры"},
	{Host: "www.youtube.com", Slug: "video", DefaultDescription: "Видео игры"},
	{Host: "forum.ifiction.ru", Slug: "forum", DefaultDescription: "Обсуждение на форуме"},
	{Host: "quest-book.ru", Path: `/online/view/.*`, Slug: "game_page", DefaultDescription: "Страница на квестбуке"},
	{Host: "qsp.su", Query: `.*=dd_download.*`, Slug: "download_direct", DefaultDescription: "Скачать с qsp.ru"},
	{Host: "qsp.su", Path: `/tools/aero/.*`, Slug: "play_online", DefaultDescription: "Играть онлайн на qsp.ru"},
	{Host: "qsp.su", Slug: "game_page", DefaultDescription: "Игра на qsp.ru"},
	{Host: "apero.ru", Path: `/%D0%A2%D0%B5%D0%BA%D1%81%D1%82%D0%BE%D0%B2%D1%8B%D0%B5-%D0%B8%D0%B3%D1%80%D1%8B/.*`, Slug: "play_online", DefaultDescription: "Играть онлайн на apero.ru"},
	{Host: `@.*\.github\.io`, Slug: "play_online", DefaultDescription: "Играть онлайн"},
	{Host: "iplayif.com", Slug: "play_online", DefaultDescription: "Играть онлайн"},
	{Host: "", Path: `.*\.(zip|rar|z5)`, Slug: "download_direct", DefaultDescription: "Ссылка для скачивания"},
}, "unknown", []phraseRule{
	{phrase: "играть онлайн", slug: "play_online"},
	{phrase: "скачать", slug: "download_landing"},
})

// Personality link rules, with author-specific phrase sniffing and
// "other" as the unknown category.
var authorTable = compile([]Rule{
	{Host: "ifwiki.ru", Slug: "personal_page", DefaultDescription: "Страница на IfWiki"},
	{Host: "apero.ru", Path: `/%D0%A3%D1%87%D0%B0%D1%81%D1%82%D0%BD%D0%B8%D0%BA%D0%B8/.*`, Slug: "personal_page", DefaultDescription: "Страница автора на apero.ru"},
	{Host: "forum.ifiction.ru", Path: `/profile\.php.*`, Slug: "personal_page", DefaultDescription: "Профиль на forum.ifiction.ru"},
	{Host: "quest-book.ru", Slug: "personal_page", DefaultDescription: "Страница автора на квестбуке"},
	{Host: "", Path: `.*\.(png|jpg|gif|bmp|jpeg)`, Slug: "avatar", DefaultDescription: "Аватар"},
	{Host: "youtube.com", Slug: "video", DefaultDescription: "Видео"},
	{Host: "www.youtube.com", Slug: "video", DefaultDescription: "Видео"},
}, "other", []phraseRule{
	{phrase: "интервью", slug: "interview"},
	{phrase: "сайт", slug: "website"},
	{phrase: "блог", slug: "blog"},
})
