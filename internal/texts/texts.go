// Package texts holds the localized string tables for the bot.
// Russian, Czech and English are supported; every lookup falls back
// to English when the requested locale lacks the string.
package texts

import (
	"strings"
	"unicode"

	"dietitian-bot/internal/models"
)

var table = map[string]map[models.Language]string{
	"welcome": {
		models.LangRU: "👋 Привет! Я твой персональный диетолог-бот.\n\nОтправь мне фото еды — я определю блюдо, рассчитаю калории и БЖУ и дам совет под твою цель.",
		models.LangCS: "👋 Ahoj! Jsem tvůj osobní dietolog-bot.\n\nPošli mi fotku jídla — určím pokrm, spočítám kalorie a makra a poradím podle tvého cíle.",
		models.LangEN: "👋 Hello! I'm your personal dietitian bot.\n\nSend me a food photo — I'll identify the dish, estimate calories and macros, and give advice tailored to your goal.",
	},
	"ask_language": {
		models.LangEN: "🌍 Choose your language / Выберите язык / Vyberte jazyk:\n\n• English\n• Русский\n• Čeština",
	},
	"ask_name": {
		models.LangRU: "Как тебя зовут?",
		models.LangCS: "Jak se jmenuješ?",
		models.LangEN: "What's your name?",
	},
	"ask_goal": {
		models.LangRU: "Какая у тебя цель? Похудеть, набрать вес или поддерживать форму?",
		models.LangCS: "Jaký je tvůj cíl? Zhubnout, přibrat, nebo si udržet váhu?",
		models.LangEN: "What's your goal? Lose weight, gain weight, or maintain?",
	},
	"ask_metrics": {
		models.LangRU: "Укажи вес (кг), рост (см) и возраст одним сообщением, например: 70, 175, 30",
		models.LangCS: "Napiš váhu (kg), výšku (cm) a věk v jedné zprávě, např.: 70, 175, 30",
		models.LangEN: "Send your weight (kg), height (cm) and age in one message, e.g.: 70, 175, 30",
	},
	"ask_activity": {
		models.LangRU: "Какой у тебя уровень активности? 1 — низкий, 2 — средний, 3 — высокий",
		models.LangCS: "Jaká je tvoje aktivita? 1 — nízká, 2 — střední, 3 — vysoká",
		models.LangEN: "What's your activity level? 1 — low, 2 — medium, 3 — high",
	},
	"onboarding_done": {
		models.LangRU: "✅ Профиль заполнен! Отправь фото еды или выбери пункт меню.",
		models.LangCS: "✅ Profil je hotový! Pošli fotku jídla nebo vyber položku z menu.",
		models.LangEN: "✅ Profile complete! Send a food photo or pick a menu item.",
	},
	"bad_name": {
		models.LangRU: "Пожалуйста, напиши своё имя (2–30 символов).",
		models.LangCS: "Napiš prosím své jméno (2–30 znaků).",
		models.LangEN: "Please send your name (2–30 characters).",
	},
	"bad_goal": {
		models.LangRU: "Не понял цель. Напиши: похудеть, набрать или поддерживать.",
		models.LangCS: "Nerozumím cíli. Napiš: zhubnout, přibrat, nebo udržet.",
		models.LangEN: "I didn't catch that. Reply: lose, gain, or maintain.",
	},
	"bad_metrics": {
		models.LangRU: "Нужны три числа: вес 30–350 кг, рост 120–230 см, возраст 10–100. Например: 70, 175, 30",
		models.LangCS: "Potřebuji tři čísla: váha 30–350 kg, výška 120–230 cm, věk 10–100. Např.: 70, 175, 30",
		models.LangEN: "I need three numbers: weight 30–350 kg, height 120–230 cm, age 10–100. E.g.: 70, 175, 30",
	},
	"bad_activity": {
		models.LangRU: "Выбери уровень активности: 1 (низкий), 2 (средний) или 3 (высокий).",
		models.LangCS: "Vyber aktivitu: 1 (nízká), 2 (střední) nebo 3 (vysoká).",
		models.LangEN: "Pick an activity level: 1 (low), 2 (medium) or 3 (high).",
	},
	"greeting": {
		models.LangRU: "Привет! 👋",
		models.LangCS: "Ahoj! 👋",
		models.LangEN: "Hi there! 👋",
	},
	"reset_done": {
		models.LangRU: "🔄 Профиль сброшен. Начнём заново!",
		models.LangCS: "🔄 Profil byl smazán. Začneme znovu!",
		models.LangEN: "🔄 Profile cleared. Let's start over!",
	},
	"subscription_required": {
		models.LangRU: "🔒 Эта функция доступна по подписке. Оформи её командой /subscribe.",
		models.LangCS: "🔒 Tato funkce vyžaduje předplatné. Aktivuj ho příkazem /subscribe.",
		models.LangEN: "🔒 This feature requires a subscription. Use /subscribe to get one.",
	},
	"subscription_expired": {
		models.LangRU: "⌛ Подписка истекла. Продли её командой /subscribe.",
		models.LangCS: "⌛ Předplatné vypršelo. Obnov ho příkazem /subscribe.",
		models.LangEN: "⌛ Your subscription has expired. Renew it with /subscribe.",
	},
	"photo_limit_reached": {
		models.LangRU: "📸 Дневной лимит анализов фото исчерпан. Попробуй завтра или перейди на премиум.",
		models.LangCS: "📸 Denní limit analýz fotek je vyčerpán. Zkus to zítra nebo přejdi na prémium.",
		models.LangEN: "📸 You've used today's photo analyses. Try again tomorrow or upgrade to premium.",
	},
	"analyzing": {
		models.LangRU: "🔍 Анализирую фото...",
		models.LangCS: "🔍 Analyzuji fotku...",
		models.LangEN: "🔍 Analyzing the photo...",
	},
	"describe_dish": {
		models.LangRU: "🤔 Не смог распознать блюдо на фото. Опиши его словами, и я посчитаю калории.",
		models.LangCS: "🤔 Nepodařilo se mi rozpoznat jídlo na fotce. Popiš ho slovy a spočítám kalorie.",
		models.LangEN: "🤔 I couldn't recognize the dish in the photo. Describe it in words and I'll estimate the calories.",
	},
	"generic_error": {
		models.LangRU: "❌ Что-то пошло не так. Попробуй ещё раз чуть позже.",
		models.LangCS: "❌ Něco se pokazilo. Zkus to prosím za chvíli znovu.",
		models.LangEN: "❌ Something went wrong. Please try again in a moment.",
	},
	"send_photo": {
		models.LangRU: "📸 Отправь фото еды, и я его проанализирую!",
		models.LangCS: "📸 Pošli fotku jídla a já ji zanalyzuji!",
		models.LangEN: "📸 Send me a food photo and I'll analyze it!",
	},
	"card_header": {
		models.LangRU: "🍽 %s\n\n⚖️ Порция: %d г\n🔥 Калории: %d ккал\n🥩 Белки: %d г\n🧈 Жиры: %d г\n🍞 Углеводы: %d г",
		models.LangCS: "🍽 %s\n\n⚖️ Porce: %d g\n🔥 Kalorie: %d kcal\n🥩 Bílkoviny: %d g\n🧈 Tuky: %d g\n🍞 Sacharidy: %d g",
		models.LangEN: "🍽 %s\n\n⚖️ Portion: %d g\n🔥 Calories: %d kcal\n🥩 Protein: %d g\n🧈 Fat: %d g\n🍞 Carbs: %d g",
	},
	"checkout_link": {
		models.LangRU: "💳 Нажми на кнопку ниже, чтобы оформить подписку:",
		models.LangCS: "💳 Klikni na tlačítko níže a aktivuj předplatné:",
		models.LangEN: "💳 Tap the button below to start your subscription:",
	},
	"subscribed": {
		models.LangRU: "🎉 Подписка активна! Спасибо!",
		models.LangCS: "🎉 Předplatné je aktivní! Díky!",
		models.LangEN: "🎉 Your subscription is active! Thank you!",
	},
	"help": {
		models.LangRU: "ℹ️ Отправь фото еды — получишь калории и БЖУ.\n\nКоманды:\n/plan — план питания\n/workout — тренировка\n/weight — записать вес\n/progress — прогресс\n/settings — профиль\n/reset — сбросить профиль\n/subscribe — подписка",
		models.LangCS: "ℹ️ Pošli fotku jídla — dostaneš kalorie a makra.\n\nPříkazy:\n/plan — jídelníček\n/workout — trénink\n/weight — zapsat váhu\n/progress — pokrok\n/settings — profil\n/reset — smazat profil\n/subscribe — předplatné",
		models.LangEN: "ℹ️ Send a food photo to get calories and macros.\n\nCommands:\n/plan — meal plan\n/workout — workout\n/weight — log weight\n/progress — progress\n/settings — profile\n/reset — reset profile\n/subscribe — subscription",
	},
	"settings": {
		models.LangRU: "⚙️ Твой профиль:\nИмя: %s\nЦель: %s\nВес: %d кг\nРост: %d см\nВозраст: %d\nАктивность: %s",
		models.LangCS: "⚙️ Tvůj profil:\nJméno: %s\nCíl: %s\nVáha: %d kg\nVýška: %d cm\nVěk: %d\nAktivita: %s",
		models.LangEN: "⚙️ Your profile:\nName: %s\nGoal: %s\nWeight: %d kg\nHeight: %d cm\nAge: %d\nActivity: %s",
	},
	"weight_logged": {
		models.LangRU: "✅ Вес %d кг записан.",
		models.LangCS: "✅ Váha %d kg zapsána.",
		models.LangEN: "✅ Weight %d kg logged.",
	},
	"bad_weight": {
		models.LangRU: "Напиши вес числом в килограммах (30–350).",
		models.LangCS: "Napiš váhu jako číslo v kilogramech (30–350).",
		models.LangEN: "Send your weight as a number in kilograms (30–350).",
	},
	"progress": {
		models.LangRU: "📈 Твой прогресс:\nТекущий вес: %d кг\nЦель: %s\n\nПродолжай в том же духе! 💪",
		models.LangCS: "📈 Tvůj pokrok:\nAktuální váha: %d kg\nCíl: %s\n\nJen tak dál! 💪",
		models.LangEN: "📈 Your progress:\nCurrent weight: %d kg\nGoal: %s\n\nKeep it up! 💪",
	},
	"ask_weight": {
		models.LangRU: "⚖️ Какой у тебя вес сегодня (кг)?",
		models.LangCS: "⚖️ Jaká je tvoje dnešní váha (kg)?",
		models.LangEN: "⚖️ What's your weight today (kg)?",
	},
}

// Get returns the string for key in the requested language, falling
// back to English when the locale lacks the string. An unknown key
// returns the empty string.
func Get(key string, lang models.Language) string {
	byLang, ok := table[key]
	if !ok {
		return ""
	}
	if s, ok := byLang[lang]; ok {
		return s
	}
	return byLang[models.DefaultLanguage]
}

// DetectLanguage guesses the language of a free-text message from
// its script: Cyrillic means Russian, Czech diacritics mean Czech,
// anything else defaults to English.
func DetectLanguage(text string) models.Language {
	lower := strings.ToLower(text)
	for _, r := range lower {
		if unicode.Is(unicode.Cyrillic, r) {
			return models.LangRU
		}
	}
	if strings.ContainsAny(lower, "ěščřžýáíéůú") {
		return models.LangCS
	}
	return models.LangEN
}
