package booking

import "svidanie/internal/models"

// Label — отображаемая подпись статуса для клиента.
type Label struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

var statusLabels = map[models.BookingStatus]Label{
	models.StatusPendingConfirmation: {Text: "Ожидает подтверждения", Color: "yellow"},
	models.StatusConfirmed:           {Text: "Подтверждено", Color: "blue"},
	models.StatusSellerReady:         {Text: "Продавец готова", Color: "cyan"},
	models.StatusBuyerReady:          {Text: "Покупатель готов", Color: "cyan"},
	models.StatusInProgress:          {Text: "Встреча идет", Color: "green"},
	models.StatusCompleted:           {Text: "Завершено", Color: "gray"},
	models.StatusCancelled:           {Text: "Отменено", Color: "red"},
	models.StatusRejected:            {Text: "Отклонено", Color: "red"},
}

// StatusLabel тотальна над статусами: для неизвестного значения
// возвращает серую подпись с самим статусом.
func StatusLabel(s models.BookingStatus) Label {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return Label{Text: string(s), Color: "gray"}
}
